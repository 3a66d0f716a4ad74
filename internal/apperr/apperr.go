package apperr

import (
	"errors"
	"net/http"
)

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindForbidden
	KindNotFound
	KindDuplicate
	KindPersistence
	KindAttachmentStore
	KindRateLimited
)

// Error is the typed error returned across service boundaries.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two errors of the same kind and code, so wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrEmptyMessage        = newError(KindValidation, "empty_message", "message must contain text or a file")
	ErrUnsupportedFileType = newError(KindValidation, "unsupported_file_type", "unsupported file type")
	ErrFileTooLarge        = newError(KindValidation, "file_too_large", "file exceeds the 100 MiB limit")
	ErrInvalidCredentials  = newError(KindValidation, "invalid_credentials", "Invalid credentials")
	ErrCannotDeleteAdmin   = newError(KindValidation, "cannot_delete_admin", "Cannot delete admin user")
	ErrDuplicateEmail      = newError(KindDuplicate, "duplicate_email", "Email already exists")
	ErrDuplicateMobile     = newError(KindDuplicate, "duplicate_mobile", "Mobile number already exists")
	ErrUnauthorized        = newError(KindAuth, "unauthorized", "Unauthorized")
	ErrForbidden           = newError(KindForbidden, "forbidden", "Forbidden - Admin access required")
	ErrUserNotFound        = newError(KindNotFound, "user_not_found", "User not found")
	ErrRateLimited         = newError(KindRateLimited, "rate_limited", "too many messages, slow down")

	ErrPersistenceUnavailable     = newError(KindPersistence, "persistence_unavailable", "storage unavailable")
	ErrAttachmentStoreUnavailable = newError(KindAttachmentStore, "attachment_store_unavailable", "attachment storage unavailable")
)

// Validation builds a validation error with a caller-facing message.
func Validation(code, message string) *Error {
	return newError(KindValidation, code, message)
}

// Persistence wraps a store failure.
func Persistence(err error) *Error {
	return &Error{
		Kind:    KindPersistence,
		Code:    ErrPersistenceUnavailable.Code,
		Message: ErrPersistenceUnavailable.Message,
		Err:     err,
	}
}

// AttachmentStore wraps an object storage failure.
func AttachmentStore(err error) *Error {
	return &Error{
		Kind:    KindAttachmentStore,
		Code:    ErrAttachmentStoreUnavailable.Code,
		Message: ErrAttachmentStoreUnavailable.Message,
		Err:     err,
	}
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// HTTPStatus maps an error to the status code returned to clients.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindDuplicate:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show a client. Infrastructure
// failures collapse to a generic text; details belong in server logs.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Internal Server Error"
	}
	switch e.Kind {
	case KindPersistence, KindAttachmentStore:
		return "Internal Server Error"
	}
	return e.Message
}
