package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FileCategory classifies an uploaded attachment by its MIME type.
type FileCategory string

const (
	FileImage    FileCategory = "IMAGE"
	FileDocument FileCategory = "DOCUMENT"
	FileAudio    FileCategory = "AUDIO"
	FileVideo    FileCategory = "VIDEO"
	FileOther    FileCategory = "OTHER"
)

// ErrFileTooLarge is returned when an uploaded file exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// ErrFileTypeNotAllowed is returned for MIME types outside the accepted categories.
var ErrFileTypeNotAllowed = errors.New("file type not allowed")

// FileTooLargeError wraps ErrFileTooLarge with details about the offending file.
func FileTooLargeError(filename string, size, limit int64) error {
	return fmt.Errorf("%w: %q is %d bytes, limit is %d MB", ErrFileTooLarge, filename, size, limit>>20)
}

// CategoryForMIME maps a MIME type onto a FileCategory. Only image, document,
// audio and video types are accepted for upload; everything else maps to
// FileOther and is rejected by the upload path.
func CategoryForMIME(mimeType string) FileCategory {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FileImage
	case strings.HasPrefix(mimeType, "audio/"):
		return FileAudio
	case strings.HasPrefix(mimeType, "video/"):
		return FileVideo
	case mimeType == "application/pdf",
		mimeType == "text/plain",
		strings.HasPrefix(mimeType, "application/msword"),
		strings.HasPrefix(mimeType, "application/vnd.openxmlformats-officedocument"),
		strings.HasPrefix(mimeType, "application/vnd.ms-excel"):
		return FileDocument
	default:
		return FileOther
	}
}

// Attachment represents a stored file linked to a chat message.
// StoredName is a random id chosen at upload time; OriginalName is kept as
// metadata only and never used as a storage path.
type Attachment struct {
	ID           string       `json:"id" bson:"_id"`
	TenantID     string       `json:"tenantId" bson:"tenant_id"`
	ChatID       string       `json:"chatId" bson:"chat_id"`
	StoredName   string       `json:"storedName" bson:"stored_name"`
	OriginalName string       `json:"originalName" bson:"original_name"`
	Category     FileCategory `json:"category" bson:"category"`
	Size         int64        `json:"size" bson:"size"`
	URL          string       `json:"url" bson:"url"`
	MIMEType     string       `json:"mimeType" bson:"mime_type"`
	UploadedBy   string       `json:"uploadedBy" bson:"uploaded_by"`
	CreatedAt    time.Time    `json:"createdAt" bson:"created_at"`
}

// FileMetadata holds GridFS metadata for an uploaded file.
type FileMetadata struct {
	MIMEType     string `bson:"mime_type"`
	TenantID     string `bson:"tenant_id"`
	ChatID       string `bson:"chat_id"`
	OriginalName string `bson:"original_name"`
	Uploader     string `bson:"uploader"`
}
