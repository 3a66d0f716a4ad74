package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"chat-app/internal/apperr"
	"chat-app/internal/logger"
	"chat-app/internal/models"
	"chat-app/internal/observability"
)

const (
	// MaxFileSize is the largest accepted upload: 100 MiB.
	MaxFileSize int64 = 100 << 20
	// Namespace is the key prefix every attachment is stored under.
	Namespace = "chat-app"

	sniffLen = 3072
)

// RawFile is an uploaded file before resolution.
type RawFile struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ObjectStore writes objects and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, params StorageParams) (string, error)
}

// Resolver validates uploads and stores them durably.
type Resolver struct {
	store ObjectStore
	now   func() time.Time
	newID func() string
}

// NewResolver builds a Resolver writing to store.
func NewResolver(store ObjectStore) *Resolver {
	return &Resolver{store: store, now: time.Now, newID: uuid.NewString}
}

// Resolve checks the file and writes it once. No retries: a failed write
// surfaces as AttachmentStoreUnavailable and the caller decides.
func (r *Resolver) Resolve(ctx context.Context, file RawFile) (models.Attachment, error) {
	if file.Size > MaxFileSize {
		return models.Attachment{}, apperr.ErrFileTooLarge
	}

	body := file.Body
	contentType := normalize(file.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		var err error
		contentType, body, err = sniff(body)
		if err != nil {
			return models.Attachment{}, apperr.Validation("unreadable_file", "could not read uploaded file")
		}
	}
	if !Accepted(contentType) {
		return models.Attachment{}, apperr.ErrUnsupportedFileType
	}

	kind := Classify(contentType)
	key := r.key(file.FileName)
	limited := &limitedReader{r: body, remaining: MaxFileSize}

	url, err := r.store.Put(ctx, key, limited, contentType, ParamsFor(contentType))
	if limited.exceeded {
		return models.Attachment{}, apperr.ErrFileTooLarge
	}
	if err != nil {
		observability.IncAttachmentFailure(string(kind))
		logger.Error().Err(err).Str("key", key).Str("content_type", contentType).Msg("attachment upload failed")
		return models.Attachment{}, apperr.AttachmentStore(err)
	}

	return models.Attachment{
		Kind:        kind,
		URL:         url,
		FileName:    file.FileName,
		ContentType: contentType,
	}, nil
}

// key builds "chat-app/<unix-millis>-<uuid><ext>".
func (r *Resolver) key(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return fmt.Sprintf("%s/%d-%s%s", Namespace, r.now().UnixMilli(), r.newID(), ext)
}

// sniff detects the content type from the head of body and returns a reader
// that still yields the full payload.
func sniff(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	return normalize(detected.String()), io.MultiReader(bytes.NewReader(head), body), nil
}

// limitedReader fails once more than remaining bytes are read, so a body
// larger than its declared size still cannot exceed MaxFileSize.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

var errTooLarge = errors.New("attachment exceeds size limit")

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, errTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, errTooLarge
	}
	return n, err
}
