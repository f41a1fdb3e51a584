package postgres

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"sort"

	ierr "github.com/netbill/netbill/internal/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type migration struct {
	Version string
	SQL     string
}

func loadMigrations() ([]migration, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, migration{Version: name, SQL: string(body)})
	}
	return out, nil
}

// Migrate applies every embedded migration not yet recorded in schema_migrations.
// Each migration runs in its own transaction.
func Migrate(ctx context.Context, db *DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to load migrations").
			Mark(ierr.ErrSystem)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return ierr.WithError(err).
			WithMessage("failed to create schema_migrations").
			Mark(ierr.ErrDatabase)
	}

	for _, m := range migrations {
		err := db.WithTx(ctx, func(ctx context.Context) error {
			q := db.Querier(ctx)

			var applied bool
			if err := q.GetContext(ctx, &applied,
				`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version); err != nil {
				return err
			}
			if applied {
				return nil
			}

			db.logger.Infow("applying migration", "version", m.Version)
			if _, err := q.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			_, err := q.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return ierr.WithError(err).
				WithMessagef("migration %s failed", m.Version).
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

// WriteMigrations prints the embedded migrations without touching the database
func WriteMigrations(w io.Writer) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := fmt.Fprintf(w, "-- %s\n%s\n", m.Version, m.SQL); err != nil {
			return err
		}
	}
	return nil
}
