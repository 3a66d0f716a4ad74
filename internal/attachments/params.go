package attachments

import (
	"mime"
	"strings"

	"chat-app/internal/models"
)

const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
	ResourceAuto  = "auto"
)

// VideoChunkSize is the multipart part size used for video uploads.
const VideoChunkSize int64 = 6_000_000

var documentTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain": {},
}

// StorageParams shapes how an object is written to storage.
type StorageParams struct {
	ResourceType string
	Format       string
	Quality      string
	// ChunkSize is the multipart part size in bytes; zero keeps the
	// uploader default.
	ChunkSize int64
}

// Metadata renders the params as object metadata.
func (p StorageParams) Metadata() map[string]string {
	md := map[string]string{
		"resource-type": p.ResourceType,
		"format":        p.Format,
		"quality":       p.Quality,
	}
	return md
}

// ParamsFor maps a content type to its storage parameters.
func ParamsFor(contentType string) StorageParams {
	ct := normalize(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return StorageParams{ResourceType: ResourceImage, Format: "auto", Quality: "auto:good"}
	case strings.HasPrefix(ct, "video/"):
		return StorageParams{ResourceType: ResourceVideo, Format: "mp4", Quality: "auto:good", ChunkSize: VideoChunkSize}
	case strings.HasPrefix(ct, "application/"):
		return StorageParams{ResourceType: ResourceRaw, Format: "auto", Quality: "auto:good"}
	}
	return StorageParams{ResourceType: ResourceAuto, Format: "auto", Quality: "auto:good"}
}

// Classify derives the attachment kind from a content type.
func Classify(contentType string) models.AttachmentKind {
	ct := normalize(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.KindImage
	case strings.HasPrefix(ct, "video/"):
		return models.KindVideo
	}
	if _, ok := documentTypes[ct]; ok {
		return models.KindDocument
	}
	return models.KindOther
}

// Accepted reports whether uploads of this content type are allowed.
func Accepted(contentType string) bool {
	return Classify(contentType) != models.KindOther
}

// normalize strips parameters and lowercases a media type.
func normalize(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
