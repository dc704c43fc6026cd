// Package storage keeps upload artifacts: the source file an operator sent
// and the Excel error report generated for it.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/binbill/internal"
)

// Storage stores opaque blobs by key.
type Storage interface {
	// Put stores content under key, replacing anything already there.
	Put(ctx context.Context, key string, content io.Reader, contentType string) error

	// Get opens the blob at key. The caller closes the reader.
	// A missing key yields a domain ENOTFOUND error.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// NewStorage creates a Storage implementation based on configuration.
func NewStorage(ctx context.Context, cfg internal.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath)
	case "r2":
		return NewR2Storage(ctx, R2Config{
			AccountID:   cfg.R2AccountID,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretKey,
			BucketName:  cfg.R2BucketName,
		})
	default:
		return nil, ErrUnknownProvider(cfg.Provider)
	}
}

// ReportKey is where the error report of an upload is kept.
func ReportKey(uploadID uuid.UUID) string {
	return fmt.Sprintf("reports/%s.xlsx", uploadID)
}

// SourceKey is where the original file of an upload is kept.
func SourceKey(uploadID uuid.UUID, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		base = "source"
	}
	return fmt.Sprintf("sources/%s/%s", uploadID, base)
}

// validKey rejects keys that could escape the storage root.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey(key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "" {
			return ErrInvalidKey(key)
		}
	}
	return nil
}
