package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vapecity/vapecity-api/tests/testutil"
)

func TestPublicURLAndKeyFromURL(t *testing.T) {
	assert.Equal(t, "/uploads/receipts/a.png", PublicURL("receipts/a.png"))
	assert.Equal(t, "/uploads/receipts/a.png", PublicURL("/receipts/a.png"))

	assert.Equal(t, "receipts/a.png", KeyFromURL("/uploads/receipts/a.png"))
	assert.Equal(t, "", KeyFromURL("https://cdn.example.com/a.png"))
	assert.Equal(t, "", KeyFromURL(""))
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	storage, err := NewLocalStorage(filepath.Join(root, "uploads"))
	require.NoError(t, err)

	fh := testutil.FileHeader(t, "receipt.png", "image/png", []byte("png-bytes"))
	url, err := storage.Save(ctx, "receipts/receipt-1-abc.png", fh)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/receipts/receipt-1-abc.png", url)

	path, ok := storage.LocalPath("receipts/receipt-1-abc.png")
	require.True(t, ok)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))

	require.NoError(t, storage.Delete(ctx, "receipts/receipt-1-abc.png"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, storage.Delete(ctx, "receipts/receipt-1-abc.png"), "missing files are not an error")
	assert.NoError(t, storage.Delete(ctx, ""))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	fh := testutil.FileHeader(t, "x.png", "image/png", []byte("x"))
	for _, key := range []string{"../escape.png", "receipts/../../escape.png", `receipts\..\x.png`} {
		_, err := storage.Save(ctx, key, fh)
		assert.Error(t, err, key)
		assert.Error(t, storage.Delete(ctx, key), key)
	}
}

type fakeS3 struct {
	puts    map[string][]byte
	types   map[string]string
	deletes []string
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{puts: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(params.Body)
	f.puts[*params.Key] = body
	f.types[*params.Key] = *params.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://" + *params.Bucket + ".s3.amazonaws.com/" + *params.Key + "?X-Amz-Signature=abc",
		Method: "GET",
	}, nil
}

func TestS3Storage(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	presigner := &fakePresigner{}
	storage := NewS3StorageWithClient(client, presigner, "vapecity-uploads")

	fh := testutil.FileHeader(t, "photo.jpg", "image/jpeg", []byte("jpeg"))
	url, err := storage.Save(ctx, "products/product-1.jpg", fh)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/products/product-1.jpg", url)
	assert.Equal(t, []byte("jpeg"), client.puts["products/product-1.jpg"])
	assert.Equal(t, "image/jpeg", client.types["products/product-1.jpg"])

	signed, err := storage.SignedURL(ctx, "products/product-1.jpg")
	require.NoError(t, err)
	assert.Contains(t, signed, "vapecity-uploads.s3.amazonaws.com/products/product-1.jpg")
	assert.Equal(t, time.Hour, presigner.expires)

	require.NoError(t, storage.Delete(ctx, "products/product-1.jpg"))
	require.NoError(t, storage.Delete(ctx, ""))
	assert.Equal(t, []string{"products/product-1.jpg"}, client.deletes)

	client.err = errors.New("access denied")
	_, err = storage.Save(ctx, "products/product-2.jpg", fh)
	assert.ErrorContains(t, err, "access denied")
	assert.Error(t, storage.Delete(ctx, "products/product-2.jpg"))
}

func TestMockStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewMockStorage()
	storage.SetAsMockForTesting()
	t.Cleanup(func() { SetFileStorage(nil) })
	assert.Same(t, storage, GetFileStorage())

	fh := testutil.FileHeader(t, "a.png", "image/png", []byte("a"))
	_, err := storage.Save(ctx, "a.png", fh)
	require.NoError(t, err)
	assert.True(t, storage.Exists("a.png"))

	signed, err := storage.SignedURL(ctx, "a.png")
	require.NoError(t, err)
	assert.Contains(t, signed, "a.png")

	_, err = storage.SignedURL(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	storage.SaveErr = errors.New("disk full")
	_, err = storage.Save(ctx, "b.png", fh)
	assert.Error(t, err)
}
