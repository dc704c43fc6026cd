package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dukerupert/binbill/internal/domain"
)

// DB is the subset of pgxpool.Pool used here.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// UploadLog implements domain.UploadLog using PostgreSQL.
type UploadLog struct {
	db DB
}

// Compile-time checks that UploadLog implements the domain interfaces.
var (
	_ domain.UploadLog   = (*UploadLog)(nil)
	_ domain.ArtifactLog = (*UploadLog)(nil)
)

// NewUploadLog creates a new PostgreSQL-backed upload log.
func NewUploadLog(db DB) *UploadLog {
	return &UploadLog{db: db}
}

const insertUpload = `
INSERT INTO uploads (
    id, source_name, actor, collection_id, state,
    total_rows, client_errors, success_count, failed_count, failure, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    collection_id = EXCLUDED.collection_id,
    state         = EXCLUDED.state,
    success_count = EXCLUDED.success_count,
    failed_count  = EXCLUDED.failed_count,
    failure       = EXCLUDED.failure`

// Record stores an upload. Recording the same upload again (a preview that
// was later confirmed or cancelled) updates the outcome columns.
func (l *UploadLog) Record(ctx context.Context, u domain.Upload) error {
	_, err := l.db.Exec(ctx, insertUpload,
		u.ID, u.SourceName, u.Actor, u.CollectionID, u.State,
		u.TotalRows, u.ClientErrors, u.SuccessCount, u.FailedCount, u.Failure, u.CreatedAt,
	)
	if err != nil {
		return domain.Internal(err, "upload.record", "failed to record upload")
	}
	return nil
}

const listRecentUploads = `
SELECT id, source_name, actor, collection_id, state,
       total_rows, client_errors, success_count, failed_count, failure, created_at
FROM uploads
ORDER BY created_at DESC
LIMIT $1`

// ListRecent returns the newest uploads first.
func (l *UploadLog) ListRecent(ctx context.Context, limit int) ([]domain.Upload, error) {
	rows, err := l.db.Query(ctx, listRecentUploads, limit)
	if err != nil {
		return nil, domain.Internal(err, "upload.list", "failed to list uploads")
	}

	uploads, err := pgx.CollectRows(rows, scanUpload)
	if err != nil {
		return nil, domain.Internal(err, "upload.list", "failed to read uploads")
	}
	return uploads, nil
}

const listUnpurgedUploads = `
SELECT id, source_name, actor, collection_id, state,
       total_rows, client_errors, success_count, failed_count, failure, created_at
FROM uploads
WHERE artifacts_purged_at IS NULL AND created_at < $1
ORDER BY created_at
LIMIT $2`

// ListUnpurged returns uploads older than before that still have artifacts.
func (l *UploadLog) ListUnpurged(ctx context.Context, before time.Time, limit int) ([]domain.Upload, error) {
	rows, err := l.db.Query(ctx, listUnpurgedUploads, before, limit)
	if err != nil {
		return nil, domain.Internal(err, "upload.listUnpurged", "failed to list uploads")
	}

	uploads, err := pgx.CollectRows(rows, scanUpload)
	if err != nil {
		return nil, domain.Internal(err, "upload.listUnpurged", "failed to read uploads")
	}
	return uploads, nil
}

// MarkPurged stamps an upload so the sweeper skips it next time.
func (l *UploadLog) MarkPurged(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := l.db.Exec(ctx, `UPDATE uploads SET artifacts_purged_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return domain.Internal(err, "upload.markPurged", "failed to mark upload purged")
	}
	return nil
}

func scanUpload(row pgx.CollectableRow) (domain.Upload, error) {
	var u domain.Upload
	err := row.Scan(
		&u.ID, &u.SourceName, &u.Actor, &u.CollectionID, &u.State,
		&u.TotalRows, &u.ClientErrors, &u.SuccessCount, &u.FailedCount, &u.Failure, &u.CreatedAt,
	)
	return u, err
}
