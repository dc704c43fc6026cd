// Package session keeps upload sessions between HTTP requests: the pipeline
// snapshot an operator is looking at, plus where its error report lives.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/binbill/internal/customer"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("upload session not found")

// Session is one operator's upload.
type Session struct {
	ID        uuid.UUID         `json:"id"`
	Actor     string            `json:"actor,omitempty"`
	Snapshot  customer.Snapshot `json:"snapshot"`
	ReportKey string            `json:"reportKey,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Store persists sessions for a limited time.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Delete removes a session and any claim on it.
	Delete(ctx context.Context, id uuid.UUID) error

	// Claim atomically marks a session as taken for submission. It reports
	// false when the session is already claimed, by this or any other
	// instance sharing the store.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	// Release drops a claim so the session can be claimed again.
	Release(ctx context.Context, id uuid.UUID) error
}
