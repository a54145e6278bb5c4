// Package postgres implements the repository contracts on PostgreSQL
// via the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx driver
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Connect opens and pings a PostgreSQL database.
func Connect(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.Connect] open")
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[postgres.Connect] ping")
	}
	return db, nil
}

// RunMigrations applies the embedded schema migrations in filename
// order, tracking applied versions in schema_migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return errors.Wrap(err, "[RunMigrations] create schema_migrations")
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return errors.Wrap(err, "[RunMigrations] read migrations dir")
	}

	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			versions = append(versions, entry.Name())
		}
	}
	sort.Strings(versions)

	for _, version := range versions {
		var exists bool
		if err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists); err != nil {
			return errors.Wrapf(err, "[RunMigrations] check %s", version)
		}
		if exists {
			continue
		}

		script, err := migrationFiles.ReadFile("migrations/" + version)
		if err != nil {
			return errors.Wrapf(err, "[RunMigrations] read %s", version)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return errors.Wrapf(err, "[RunMigrations] apply %s", version)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return errors.Wrapf(err, "[RunMigrations] record %s", version)
		}
	}
	return nil
}
