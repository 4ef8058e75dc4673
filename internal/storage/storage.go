package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Storage abstracts the blob store holding uploaded file content. The
// database rows own the byte accounting; the blob store only holds content.
type Storage interface {
	// Save stores a blob at the given path
	Save(ctx context.Context, path string, reader io.Reader, contentType string) error

	// Get retrieves a blob from the given path
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a blob at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if a blob exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// GetURL returns a public URL for the blob
	GetURL(ctx context.Context, path string) (string, error)

	// GetSignedURL returns a temporary signed URL for private blobs
	GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	// GetSize returns the size of a blob in bytes
	GetSize(ctx context.Context, path string) (int64, error)
}

// Config holds storage configuration
type Config struct {
	Type      string // local, s3
	BasePath  string // for local storage
	BaseURL   string // public URL base
	Bucket    string // for S3
	Region    string // for S3
	AccessKey string // for S3
	SecretKey string // for S3
	Endpoint  string // for S3-compatible providers
}

// NewStorage creates a storage instance based on configuration
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
