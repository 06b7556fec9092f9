package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// applyMigrations runs the embedded migrations for dialect against db.
func applyMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string, logger *slog.Logger) error {
	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("migrations %s: %w", dir, err)
	}
	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return fmt.Errorf("migrations %s: %w", dir, err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations %s: %w", dir, err)
	}
	for _, r := range results {
		logger.Debug("store.migration.applied", "dialect", dialect, "version", r.Source.Version, "elapsed_ms", r.Duration.Milliseconds())
	}
	return nil
}
