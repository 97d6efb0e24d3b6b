// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package sqlstore

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/go-sql-driver/mysql" // MySQL driver for database/sql
	_ "github.com/lib/pq"              // PostgreSQL driver for database/sql
	_ "modernc.org/sqlite"             // SQLite driver for database/sql
)

//go:embed migrations
var migrations embed.FS

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds database connection options.
type Config struct {
	// Driver is one of DriverSQLite, DriverPostgres, DriverMySQL.
	Driver string
	// DSN is the driver-specific data source name. SQLite takes a file
	// path; MySQL DSNs should set parseTime=true so timestamps scan back
	// as time.Time.
	DSN string
	// MaxOpenConns is the maximum number of open connections.
	// For SQLite, WAL mode supports multiple readers but a single writer.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle pooled connections.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns sensible pool defaults for the given driver and DSN.
func DefaultConfig(driver, dsn string) Config {
	return Config{
		Driver:          driver,
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Open opens a database connection with default pool settings.
func Open(driver, dsn string) (*sql.DB, error) {
	return OpenWithConfig(DefaultConfig(driver, dsn))
}

// OpenWithConfig opens a database connection with custom configuration and
// verifies it with a ping. SQLite connections get the pragma setup the log
// workload wants: WAL for concurrent readers and a busy timeout so bursts
// of writers queue instead of failing.
func OpenWithConfig(cfg Config) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.Driver == DriverSQLite {
		pragmas := []string{
			"PRAGMA journal_mode=WAL",        // Write-Ahead Logging for better concurrency
			"PRAGMA busy_timeout=5000",       // Wait 5s when database is locked
			"PRAGMA synchronous=NORMAL",      // Good balance of safety and speed
			"PRAGMA cache_size=-64000",       // 64MB cache
			"PRAGMA foreign_keys=ON",         // Enforce foreign key constraints
			"PRAGMA temp_store=MEMORY",       // Store temp tables in memory
			"PRAGMA mmap_size=268435456",     // 256MB memory-mapped I/O
			"PRAGMA page_size=4096",          // 4KB page size (standard)
			"PRAGMA wal_autocheckpoint=1000", // Auto checkpoint every 1000 pages
			"PRAGMA optimize",                // Run query planner optimizations
		}
		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
			}
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// gooseDialects maps driver names to goose dialect names.
var gooseDialects = map[string]string{
	DriverSQLite:   "sqlite3",
	DriverPostgres: "postgres",
	DriverMySQL:    "mysql",
}

// Migrate runs all pending migrations for the given driver from the
// embedded per-dialect migration directory.
func Migrate(db *sql.DB, driver string) error {
	dialect, ok := gooseDialects[driver]
	if !ok {
		return fmt.Errorf("unsupported driver %q", driver)
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db, "migrations/"+driver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
