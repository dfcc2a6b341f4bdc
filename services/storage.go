package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"os"
	"strings"

	"github.com/vapecity/vapecity-api/utils"
)

// UploadsURLPrefix is the public path under which stored files are served
const UploadsURLPrefix = "/uploads/"

// FileStorage stores uploaded images under slash-separated keys such as
// "receipts/receipt-7-<uuid>.jpg".
type FileStorage interface {
	// Save stores the file under key and returns its public URL path
	Save(ctx context.Context, key string, fileHeader *multipart.FileHeader) (string, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// LocalPather is implemented by storages that keep files on local disk
type LocalPather interface {
	LocalPath(key string) (string, bool)
}

// URLSigner is implemented by storages that serve files through signed URLs
type URLSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

var fileStorageInstance FileStorage

// InitFileStorage sets the process-wide storage backend
func InitFileStorage(storage FileStorage) FileStorage {
	fileStorageInstance = storage
	return fileStorageInstance
}

// GetFileStorage returns the initialized storage instance
func GetFileStorage() FileStorage {
	return fileStorageInstance
}

// SetFileStorage sets the storage instance (primarily for testing)
func SetFileStorage(storage FileStorage) {
	fileStorageInstance = storage
}

// PublicURL returns the URL path a stored key is served under
func PublicURL(key string) string {
	return UploadsURLPrefix + strings.TrimPrefix(key, "/")
}

// KeyFromURL reverses PublicURL. It returns "" for URLs that do not point
// into the upload area, e.g. external image links.
func KeyFromURL(url string) string {
	if !strings.HasPrefix(url, UploadsURLPrefix) {
		return ""
	}
	return strings.TrimPrefix(url, UploadsURLPrefix)
}

// LocalStorage keeps uploads in a directory on disk
type LocalStorage struct {
	Root string
}

// NewLocalStorage creates the root directory and returns a storage on it
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{Root: root}, nil
}

// Save writes the file to Root/key
func (s *LocalStorage) Save(ctx context.Context, key string, fileHeader *multipart.FileHeader) (string, error) {
	path, ok := s.LocalPath(key)
	if !ok {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	if err := utils.SaveUploadedFile(fileHeader, path); err != nil {
		return "", err
	}
	return PublicURL(key), nil
}

// Delete removes Root/key
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	path, ok := s.LocalPath(key)
	if !ok {
		return fmt.Errorf("invalid storage key %q", key)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// LocalPath maps key to a path under Root
func (s *LocalStorage) LocalPath(key string) (string, bool) {
	return utils.SafeJoin(s.Root, key)
}
