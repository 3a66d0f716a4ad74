package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-app/internal/apperr"
	"chat-app/internal/attachments"
	"chat-app/internal/logger"
	"chat-app/internal/middleware"
	"chat-app/internal/observability"
)

// multipartOverhead leaves room for form fields and boundaries next to a
// maximum-size file.
const multipartOverhead = 1 << 20

func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Str("request_id", requestIDFromContext(c)).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func requestIDFromContext(c *gin.Context) string {
	if id := observability.RequestIDFromContext(c.Request.Context()); id != "" {
		return id
	}
	return observability.RequestIDFromRequest(c.Request)
}

func userIDFromContext(c *gin.Context) *int {
	if userID := c.GetInt(middleware.ContextUserID); userID != 0 {
		return &userID
	}
	return nil
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// limitBody caps the request body so oversize uploads fail while parsing
// instead of filling the temp dir.
func limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, attachments.MaxFileSize+multipartOverhead)
}

// formFile opens an optional multipart file. It returns nil when the field
// is absent. The caller closes the returned file.
func formFile(c *gin.Context, field string) (*attachments.RawFile, multipart.File, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, apperr.ErrFileTooLarge
		}
		return nil, nil, apperr.Validation("invalid_form", "invalid multipart form")
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &attachments.RawFile{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}
