package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open via the DB_DRIVER environment variable.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates and returns a database connection. The engine is selected by
// DB_DRIVER ("sqlite" or "postgres", defaulting to sqlite).
//
// For sqlite the database file is stored at the path specified by DB_PATH
// (default "./data/ledger.db") with WAL mode and foreign keys enabled.
// For postgres the connection string is taken from DATABASE_URL.
func Open() (*sql.DB, string, error) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = DriverSQLite
	}

	var database *sql.DB
	var err error

	switch driver {
	case DriverSQLite:
		dbPath := os.Getenv("DB_PATH")
		if dbPath == "" {
			dbPath = "./data/ledger.db"
		}
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, "", fmt.Errorf("creating db directory: %w", err)
		}
		database, err = sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
		if err != nil {
			return nil, "", fmt.Errorf("opening sqlite database: %w", err)
		}
		slog.Info("database connected", "driver", driver, "path", dbPath)

	case DriverPostgres:
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, "", fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
		database, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("opening postgres database: %w", err)
		}
		slog.Info("database connected", "driver", driver)

	default:
		return nil, "", fmt.Errorf("unknown DB_DRIVER %q", driver)
	}

	if err := database.Ping(); err != nil {
		return nil, "", fmt.Errorf("pinging database: %w", err)
	}
	return database, driver, nil
}

// OpenSQLiteFile opens a sqlite database at the given path. Used by tests
// that need a throwaway database independent of the environment.
func OpenSQLiteFile(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return database, nil
}
