package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxProofFileSize is 10MB in bytes
	MaxProofFileSize = 10 * 1024 * 1024
)

// AllowedProofFormats are the file extensions accepted for proof-of-delivery
// photos.
var AllowedProofFormats = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateProofImage validates a proof-of-delivery upload's format and size.
func ValidateProofImage(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxProofFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxProofFileSize/(1024*1024)),
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := AllowedProofFormats[ext]; !ok {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only .png, .jpg and .jpeg files are allowed",
		}
	}

	return nil
}

// ProofContentType returns the MIME type for an accepted proof image
// filename, defaulting to application/octet-stream for anything else.
func ProofContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := AllowedProofFormats[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
