//go:build integration

package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/binbill/internal/customer"
	"github.com/dukerupert/binbill/internal/domain"
)

func TestRedisStore_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client, time.Minute)
	s := &Session{
		ID: uuid.New(),
		Snapshot: customer.Snapshot{
			State:   customer.StatePreviewReady,
			Records: []domain.CustomerRecord{{FullName: "Ada", Phone: "2348012345678", PreviousDebt: decimal.RequireFromString("12.5")}},
		},
	}
	require.NoError(t, store.Save(ctx, s))
	t.Cleanup(func() { _ = store.Delete(ctx, s.ID) })

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Snapshot.Records, 1)
	assert.True(t, got.Snapshot.Records[0].PreviousDebt.Equal(decimal.RequireFromString("12.5")))

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Claim(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	// Two stores on one server stand in for two instances.
	a := NewRedisStore(client, time.Minute)
	b := NewRedisStore(client, time.Minute)
	id := uuid.New()
	t.Cleanup(func() { _ = a.Delete(ctx, id) })

	ok, err := a.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx, id))
	ok, err = b.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}
