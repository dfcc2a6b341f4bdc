package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
)

// MockStorage is an in-memory FileStorage for testing
type MockStorage struct {
	files   map[string][]byte
	deleted []string
	mu      sync.RWMutex

	// SaveErr and DeleteErr, when set, are returned by Save and Delete
	SaveErr   error
	DeleteErr error
}

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files: make(map[string][]byte),
	}
}

// SetAsMockForTesting sets this mock as the global storage instance for testing
func (m *MockStorage) SetAsMockForTesting() {
	SetFileStorage(m)
}

// Save records the file content under key
func (m *MockStorage) Save(ctx context.Context, key string, fileHeader *multipart.FileHeader) (string, error) {
	if m.SaveErr != nil {
		return "", m.SaveErr
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	m.mu.Lock()
	m.files[key] = content
	m.mu.Unlock()

	return PublicURL(key), nil
}

// Delete removes key and records the call
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.files, key)
	return nil
}

// SignedURL returns a fake presigned URL for stored keys
func (m *MockStorage) SignedURL(ctx context.Context, key string) (string, error) {
	if !m.Exists(key) {
		return "", fmt.Errorf("upload: %w", ErrNotFound)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// Exists checks if a key exists in mock storage
func (m *MockStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[key]
	return exists
}

// Keys returns every stored key (for testing assertions)
func (m *MockStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	return keys
}

// Deleted returns the keys passed to Delete, in order
func (m *MockStorage) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}
