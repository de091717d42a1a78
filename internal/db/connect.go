package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver maps common aliases to a supported driver.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pg", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("db: unsupported driver %q (expected sqlite|postgres)", s)
	}
}

// Open opens a DB, tunes the pool and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quiz.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/quiz?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("db: unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	tunePool(driver, db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// tunePool keeps sqlite on a single connection (single writer; an in-memory
// database also lives only as long as its connection).
func tunePool(driver Driver, db *sql.DB) {
	maxOpen := 20
	maxIdle := 10
	connLife := 45 * time.Minute
	idleLife := 15 * time.Minute

	if driver == DriverSQLite {
		maxOpen = 1
		maxIdle = 1
		connLife = 0
		idleLife = 0
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLife)
	db.SetConnMaxIdleTime(idleLife)
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("db: sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}
