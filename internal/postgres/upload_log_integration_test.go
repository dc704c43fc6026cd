//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/binbill/internal"
	"github.com/dukerupert/binbill/internal/domain"
)

func TestUploadLog(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	ctx := context.Background()

	sqlDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, internal.RunMigrations(ctx, sqlDB, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	log := NewUploadLog(pool)
	u := domain.Upload{
		ID:           uuid.New(),
		SourceName:   "customers.csv",
		Actor:        "ops@psp.ng",
		CollectionID: "col_1",
		State:        "submit_succeeded",
		TotalRows:    10,
		SuccessCount: 9,
		FailedCount:  1,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, log.Record(ctx, u))
	t.Cleanup(func() { _, _ = pool.Exec(ctx, "DELETE FROM uploads WHERE id = $1", u.ID) })

	got, err := log.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	var found bool
	for _, g := range got {
		if g.ID == u.ID {
			found = true
			assert.Equal(t, u.SuccessCount, g.SuccessCount)
			assert.True(t, u.CreatedAt.Equal(g.CreatedAt))
		}
	}
	assert.True(t, found)
}

func TestUploadLog_Purge(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	ctx := context.Background()

	sqlDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, internal.RunMigrations(ctx, sqlDB, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	log := NewUploadLog(pool)
	old := domain.Upload{
		ID:         uuid.New(),
		SourceName: "old.csv",
		State:      "validation_failed",
		CreatedAt:  time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, log.Record(ctx, old))
	t.Cleanup(func() { _, _ = pool.Exec(ctx, "DELETE FROM uploads WHERE id = $1", old.ID) })

	cutoff := time.Date(2001, 1, 2, 0, 0, 0, 0, time.UTC)
	got, err := log.ListUnpurged(ctx, cutoff, 100)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, old.ID, got[0].ID)

	require.NoError(t, log.MarkPurged(ctx, old.ID, time.Now()))

	got, err = log.ListUnpurged(ctx, cutoff, 100)
	require.NoError(t, err)
	for _, u := range got {
		assert.NotEqual(t, old.ID, u.ID)
	}
}
