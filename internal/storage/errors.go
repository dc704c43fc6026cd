package storage

import (
	"errors"
	"fmt"

	"github.com/dukerupert/binbill/internal/domain"
)

var (
	// ErrR2AccountIDRequired is returned when R2 account ID is missing.
	ErrR2AccountIDRequired = domain.Invalid("storage.r2", "R2 account ID is required")

	// ErrR2CredentialsRequired is returned when R2 credentials are missing.
	ErrR2CredentialsRequired = domain.Invalid("storage.r2", "R2 credentials are required")

	// ErrR2BucketRequired is returned when R2 bucket name is missing.
	ErrR2BucketRequired = domain.Invalid("storage.r2", "R2 bucket name is required")
)

// ErrFileNotFound creates an error for when a file is not found.
func ErrFileNotFound(key string) error {
	return domain.NotFound("storage.get", "file", key)
}

// ErrUnknownProvider creates an error for unknown storage providers.
func ErrUnknownProvider(provider string) error {
	return domain.Invalid("storage.new", fmt.Sprintf("unknown storage provider: %s", provider))
}

var errBadKey = errors.New("key is empty or escapes the storage root")

// ErrInvalidKey creates an error for keys that are empty or escape the root.
func ErrInvalidKey(key string) error {
	return domain.WrapError(errBadKey, domain.EINVALID, "storage.key", fmt.Sprintf("invalid storage key: %q", key))
}

// IsInvalidKey reports whether err was caused by a rejected key.
func IsInvalidKey(err error) bool {
	return errors.Is(err, errBadKey)
}
