package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Upload is the audit entry of a bulk upload. It is written when a preview
// is ready and rewritten when the upload finishes.
type Upload struct {
	ID           uuid.UUID `json:"id"`
	SourceName   string    `json:"sourceName"`
	Actor        string    `json:"actor,omitempty"`
	CollectionID string    `json:"collectionId,omitempty"`
	State        string    `json:"state"`
	TotalRows    int       `json:"totalRows"`
	ClientErrors int       `json:"clientErrors"`
	SuccessCount int       `json:"successCount"`
	FailedCount  int       `json:"failedCount"`
	Failure      string    `json:"failure,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UploadLog records uploads for later review.
type UploadLog interface {
	Record(ctx context.Context, u Upload) error
	ListRecent(ctx context.Context, limit int) ([]Upload, error)
}

// ArtifactLog tracks which uploads still have files in storage.
type ArtifactLog interface {
	// ListUnpurged returns uploads created before the cutoff whose files
	// have not been removed yet, oldest first.
	ListUnpurged(ctx context.Context, before time.Time, limit int) ([]Upload, error)

	// MarkPurged records that the files of an upload were removed.
	MarkPurged(ctx context.Context, id uuid.UUID, at time.Time) error
}

// NopUploadLog discards everything. Used when no database is configured.
type NopUploadLog struct{}

var _ UploadLog = NopUploadLog{}

func (NopUploadLog) Record(context.Context, Upload) error { return nil }

func (NopUploadLog) ListRecent(context.Context, int) ([]Upload, error) { return []Upload{}, nil }
