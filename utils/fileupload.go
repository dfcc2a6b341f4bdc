package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const megabyte = 1024 * 1024

// UploadRule limits the size and extension of one kind of upload
type UploadRule struct {
	MaxSize    int64
	Extensions []string
}

var (
	// ProductImageRule applies to catalog product photos
	ProductImageRule = UploadRule{
		MaxSize:    5 * megabyte,
		Extensions: []string{".jpg", ".jpeg", ".png", ".webp"},
	}

	// ReceiptRule applies to payment receipts and shipping photos
	ReceiptRule = UploadRule{
		MaxSize:    10 * megabyte,
		Extensions: []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".heic", ".heif"},
	}
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size against rule
func ValidateImageFile(fileHeader *multipart.FileHeader, rule UploadRule) error {
	if fileHeader == nil {
		return &FileUploadError{Code: "NO_FILE", Message: "No file uploaded"}
	}

	if fileHeader.Size > rule.MaxSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", rule.MaxSize/megabyte),
		}
	}

	ext := Extension(fileHeader.Filename)
	if !slices.Contains(rule.Extensions, ext) {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Only %s files are allowed", strings.Join(rule.Extensions, ", ")),
		}
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/octet-stream" && !strings.HasPrefix(contentType, "image/") {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only image files are allowed",
		}
	}

	return nil
}

// Extension returns the lowercased extension of filename, including the dot
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// SaveUploadedFile copies the uploaded file to fullPath, creating parent
// directories as needed.
func SaveUploadedFile(fileHeader *multipart.FileHeader, fullPath string) (err error) {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}

	return nil
}

// SafeJoin joins a slash-separated relative path onto root and refuses
// anything that would escape it.
func SafeJoin(root, rel string) (string, bool) {
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.Contains(rel, "..") || strings.Contains(rel, "\\") {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(rel)), true
}
