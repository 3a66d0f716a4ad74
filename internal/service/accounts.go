package service

import (
	"context"
	"errors"
	"strings"

	"chat-app/internal/apperr"
	"chat-app/internal/attachments"
	"chat-app/internal/auth"
	"chat-app/internal/logger"
	"chat-app/internal/models"
	"chat-app/internal/observability"
	"chat-app/internal/repositories"
)

// Auditor records account changes made by admins.
type Auditor interface {
	EmitAction(ctx context.Context, action, requestID string, actorID, targetID int)
}

// AccountService handles signup, login, profile changes and admin user
// management.
type AccountService struct {
	users    repositories.UserRepository
	resolver AttachmentResolver
	audit    Auditor
}

func NewAccountService(users repositories.UserRepository, resolver AttachmentResolver, audit Auditor) *AccountService {
	return &AccountService{users: users, resolver: resolver, audit: audit}
}

// Signup creates a regular user.
func (s *AccountService) Signup(ctx context.Context, draft auth.UserDraft) (models.User, error) {
	draft.Role = models.RoleUser
	return s.create(ctx, draft)
}

// Login checks credentials. Unknown users, inactive accounts, role
// mismatches and wrong passwords all yield the same error.
func (s *AccountService) Login(ctx context.Context, emailOrMobile, password string, role models.Role) (models.User, error) {
	emailOrMobile = strings.TrimSpace(emailOrMobile)
	if emailOrMobile == "" || password == "" {
		return models.User{}, apperr.Validation("missing_credentials", "Both email/mobile and password are required")
	}

	user, err := s.users.FindByLogin(ctx, emailOrMobile)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, apperr.Persistence(err)
	}

	if !user.IsActive || (role != "" && user.Role != role) || !auth.ComparePassword(password, user.PasswordHash) {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	user.PasswordHash = ""
	return user, nil
}

// CurrentUser returns an active user by id.
func (s *AccountService) CurrentUser(ctx context.Context, userID int) (models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, apperr.ErrUnauthorized
	}
	return user, nil
}

// UpdateProfilePic stores an image upload as the user's avatar.
func (s *AccountService) UpdateProfilePic(ctx context.Context, userID int, file attachments.RawFile) (models.User, error) {
	if file.ContentType != "" && file.ContentType != "application/octet-stream" && attachments.Classify(file.ContentType) != models.KindImage {
		return models.User{}, apperr.ErrUnsupportedFileType
	}
	att, err := s.resolver.Resolve(ctx, file)
	if err != nil {
		return models.User{}, err
	}
	if att.Kind != models.KindImage {
		return models.User{}, apperr.ErrUnsupportedFileType
	}

	user, err := s.users.UpdateProfilePic(ctx, userID, att.URL)
	if err != nil {
		return models.User{}, userLookupError(err)
	}
	return user, nil
}

// CreateUser lets an admin create a user with any role.
func (s *AccountService) CreateUser(ctx context.Context, actorID int, draft auth.UserDraft) (models.User, error) {
	if draft.Role == "" {
		draft.Role = models.RoleUser
	}
	user, err := s.create(ctx, draft)
	if err != nil {
		return models.User{}, err
	}
	s.emit(ctx, "user.created", actorID, user.ID)
	return user, nil
}

func (s *AccountService) ListUsers(ctx context.Context, search string, includeInactive bool) ([]models.User, error) {
	users, err := s.users.List(ctx, search, includeInactive)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return users, nil
}

func (s *AccountService) GetUser(ctx context.Context, userID int) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, userLookupError(err)
	}
	return user, nil
}

// UpdateUser replaces name, email, mobile and role. An empty role keeps the
// current one.
func (s *AccountService) UpdateUser(ctx context.Context, actorID, userID int, draft auth.UserDraft) (models.User, error) {
	draft.Password = ""
	if err := auth.ValidateDraft(draft, false); err != nil {
		return models.User{}, err
	}

	existing, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	existing.FullName = strings.TrimSpace(draft.FullName)
	existing.Email = strings.ToLower(strings.TrimSpace(draft.Email))
	existing.Mobile = draft.Mobile
	if draft.Role != "" {
		existing.Role = draft.Role
	}

	updated, err := s.users.Update(ctx, existing)
	if err != nil {
		return models.User{}, accountWriteError(err)
	}
	s.emit(ctx, "user.updated", actorID, userID)
	return updated, nil
}

// DeactivateUser soft-deletes a non-admin user.
func (s *AccountService) DeactivateUser(ctx context.Context, actorID, userID int) (models.User, error) {
	if err := s.ensureDeletable(ctx, userID); err != nil {
		return models.User{}, err
	}
	user, err := s.users.Deactivate(ctx, userID)
	if err != nil {
		return models.User{}, userLookupError(err)
	}
	s.emit(ctx, "user.deactivated", actorID, userID)
	return user, nil
}

// DeleteUser permanently removes a non-admin user.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, userID int) error {
	if err := s.ensureDeletable(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return userLookupError(err)
	}
	s.emit(ctx, "user.deleted", actorID, userID)
	return nil
}

// SeedAdmin creates the first admin account when it does not exist yet.
func (s *AccountService) SeedAdmin(ctx context.Context, email, password string) error {
	_, err := s.users.FindByLogin(ctx, email)
	if err == nil {
		logger.Info().Str("email", email).Msg("admin already exists")
		return nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	created, err := s.users.Create(ctx, models.User{
		FullName:     "Admin User",
		Email:        strings.ToLower(email),
		Mobile:       "0000000000",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logger.Info().Int("user_id", created.ID).Str("email", created.Email).Msg("admin user seeded")
	return nil
}

func (s *AccountService) create(ctx context.Context, draft auth.UserDraft) (models.User, error) {
	if err := auth.ValidateDraft(draft, true); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(draft.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Create(ctx, models.User{
		FullName:     strings.TrimSpace(draft.FullName),
		Email:        strings.ToLower(strings.TrimSpace(draft.Email)),
		Mobile:       draft.Mobile,
		PasswordHash: hash,
		Role:         draft.Role,
	})
	if err != nil {
		return models.User{}, accountWriteError(err)
	}
	return user, nil
}

func (s *AccountService) ensureDeletable(ctx context.Context, userID int) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return apperr.ErrCannotDeleteAdmin
	}
	return nil
}

func (s *AccountService) emit(ctx context.Context, action string, actorID, targetID int) {
	if s.audit == nil {
		return
	}
	s.audit.EmitAction(ctx, action, observability.RequestIDFromContext(ctx), actorID, targetID)
}

func accountWriteError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return apperr.ErrDuplicateEmail
	case errors.Is(err, repositories.ErrDuplicateMobile):
		return apperr.ErrDuplicateMobile
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperr.ErrUserNotFound
	}
	return apperr.Persistence(err)
}
