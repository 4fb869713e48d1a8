package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"ladders_backend/internal/db"

	"github.com/jackc/pgx/v5"
)

// FS contains the embedded Postgres migrations.
//
//go:embed *.sql
var FS embed.FS

const migrationTable = "schema_migrations"

// Names returns the migration files in apply order.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Apply executes every migration not yet recorded in schema_migrations, each
// in its own transaction, and returns the names it applied.
func Apply(ctx context.Context, pool db.TxBeginner) ([]string, error) {
	names, err := Names()
	if err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name       TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}

	var applied []string
	for _, name := range names {
		content, err := fs.ReadFile(FS, name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}

		done := false
		err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `INSERT INTO `+migrationTable+` (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				done = true
				return nil
			}
			_, err = tx.Exec(ctx, string(content))
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", name, err)
		}
		if !done {
			applied = append(applied, name)
		}
	}
	return applied, nil
}
