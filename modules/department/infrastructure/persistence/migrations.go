package persistence

import (
	"context"
	"embed"
	"io/fs"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// MigrationResult describes one applied or rolled back schema version.
type MigrationResult struct {
	Version int64
	Path    string
}

func newMigrationProvider(pool *pgxpool.Pool) (*goose.Provider, func() error, error) {
	fsys, err := fs.Sub(schemaFS, "schema")
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open embedded schema")
	}
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "failed to create migration provider")
	}
	return provider, db.Close, nil
}

// Migrate applies every pending department schema migration.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]MigrationResult, error) {
	provider, closeDB, err := newMigrationProvider(pool)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeDB() }()

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply migrations")
	}
	out := make([]MigrationResult, 0, len(results))
	for _, r := range results {
		out = append(out, MigrationResult{Version: r.Source.Version, Path: r.Source.Path})
	}
	return out, nil
}

// SchemaVersion reports the latest applied migration version.
func SchemaVersion(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	provider, closeDB, err := newMigrationProvider(pool)
	if err != nil {
		return 0, err
	}
	defer func() { _ = closeDB() }()

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	return version, nil
}
