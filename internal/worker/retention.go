// Package worker runs background maintenance next to the API server.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dukerupert/binbill/internal/domain"
	"github.com/dukerupert/binbill/internal/storage"
)

// Config holds sweeper configuration
type Config struct {
	// Retention is how long source files and error reports are kept after
	// an upload is created.
	Retention time.Duration

	// Interval is how often to look for expired uploads
	Interval time.Duration

	// BatchSize caps how many uploads one sweep handles
	BatchSize int
}

// Sweeper deletes the stored files of uploads past their retention period.
// Upload history rows are kept; only the artifacts go.
type Sweeper struct {
	config Config
	log    domain.ArtifactLog
	store  storage.Storage
	logger zerolog.Logger
	now    func() time.Time
}

// NewSweeper creates a retention sweeper.
func NewSweeper(log domain.ArtifactLog, store storage.Storage, config Config, logger zerolog.Logger) *Sweeper {
	// Set defaults
	if config.Retention == 0 {
		config.Retention = 30 * 24 * time.Hour
	}
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Sweeper{
		config: config,
		log:    log,
		store:  store,
		logger: logger.With().Str("component", "retention").Logger(),
		now:    time.Now,
	}
}

// Start sweeps once immediately and then on every interval until ctx is
// cancelled. It only returns nil: a failed sweep is logged and retried on
// the next tick.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info().
		Dur("retention", s.config.Retention).
		Dur("interval", s.config.Interval).
		Msg("retention sweeper starting")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if n, err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Int("purged", n).Msg("retention sweep failed")
		} else if n > 0 {
			s.logger.Info().Int("purged", n).Msg("retention sweep completed")
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retention sweeper shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep purges one batch of expired uploads and returns how many were purged.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	uploads, err := s.log.ListUnpurged(ctx, now.Add(-s.config.Retention), s.config.BatchSize)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if err := s.purge(ctx, u, now); err != nil {
			return purged, fmt.Errorf("purge upload %s: %w", u.ID, err)
		}
		purged++
	}
	return purged, nil
}

func (s *Sweeper) purge(ctx context.Context, u domain.Upload, now time.Time) error {
	for _, key := range []string{storage.SourceKey(u.ID, u.SourceName), storage.ReportKey(u.ID)} {
		err := s.store.Delete(ctx, key)
		if storage.IsInvalidKey(err) {
			// Nothing can have been stored under a key the store refuses.
			s.logger.Warn().Err(err).Str("upload_id", u.ID.String()).Msg("skipping unusable artifact key")
			continue
		}
		if err != nil {
			return err
		}
	}
	return s.log.MarkPurged(ctx, u.ID, now)
}
