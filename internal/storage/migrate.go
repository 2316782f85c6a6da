package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is an embedded schema migration.
type Migration struct {
	ID    string
	UpSQL string
}

// Migrate applies all pending migrations inside per-migration transactions
// and returns the IDs it applied.
func (g *Gateway) Migrate(ctx context.Context) ([]string, error) {
	if _, err := g.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return nil, MapError(err, "create schema_migrations")
	}

	migrations, err := loadMigrations()
	if err != nil {
		return nil, err
	}

	applied := map[string]bool{}
	rows, err := g.db.QueryContext(ctx, `SELECT id FROM schema_migrations`)
	if err != nil {
		return nil, MapError(err, "list applied migrations")
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err, "scan migration id")
		}
		applied[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "list applied migrations")
	}

	appliedIDs := []string{}
	for _, migration := range migrations {
		if applied[migration.ID] {
			continue
		}
		tx, err := g.db.BeginTx(ctx, nil)
		if err != nil {
			return appliedIDs, MapError(err, fmt.Sprintf("begin migration %s", migration.ID))
		}
		if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
			_ = tx.Rollback()
			return appliedIDs, MapError(err, fmt.Sprintf("apply migration %s", migration.ID))
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (id) VALUES ($1)`, migration.ID); err != nil {
			_ = tx.Rollback()
			return appliedIDs, MapError(err, fmt.Sprintf("record migration %s", migration.ID))
		}
		if err := tx.Commit(); err != nil {
			return appliedIDs, MapError(err, fmt.Sprintf("commit migration %s", migration.ID))
		}
		appliedIDs = append(appliedIDs, migration.ID)
	}
	return appliedIDs, nil
}

func loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	migrations := []Migration{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			ID:    strings.TrimSuffix(name, ".up.sql"),
			UpSQL: string(data),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].ID < migrations[j].ID })
	return migrations, nil
}
