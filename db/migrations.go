package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// Migrate brings the schema up to date using the embedded goose migrations
// for the given driver. Safe to call on every startup.
func Migrate(database *sql.DB, driver string) error {
	slog.Info("running database migrations", "driver", driver)

	dialect := "sqlite3"
	dir := "migrations/sqlite"
	if driver == DriverPostgres {
		dialect = "postgres"
		dir = "migrations/postgres"
	}

	sub, err := fs.Sub(embedMigrations, dir)
	if err != nil {
		return fmt.Errorf("locating embedded migrations: %w", err)
	}
	goose.SetBaseFS(sub)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(database, "."); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	slog.Info("database migrations complete")
	return nil
}
