package internal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/dukerupert/binbill/migrations"
)

// RunMigrations applies pending migrations from the embedded migrations
// directory and logs each one applied.
func RunMigrations(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.MigrationsFS)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, r := range results {
		logger.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("took", r.Duration).
			Msg("migration applied")
	}
	return nil
}
