// Package database provides the embedded SQLite connection used by the
// Telemetry Store. It manages a single WAL-mode database file with
// production-grade pragma tuning, connection pooling, embedded schema
// migration, and health checks, so that 5-15 concurrent agent processes
// and one polling dashboard process can read and write it safely.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGo dependency)
)

// schemaFiles embeds the swarm state schema into the binary at compile
// time, so the schema travels with the launcher binary regardless of
// where it is deployed.
//
//go:embed schemas/*.sql
var schemaFiles embed.FS

// DB wraps a single SQLite connection with the pragma tuning, connection
// pooling, schema migration, and health checks the Telemetry Store needs.
type DB struct {
	conn *sql.DB // Underlying SQLite connection
	path string  // Absolute path to database file
	name string  // Database name for logging (defaults to "swarm")
}

// Config holds database configuration used when creating a new database
// connection.
type Config struct {
	Path string // Database file path (resolved to absolute)
	Name string // Friendly name for logging, defaults to "swarm"
}

// New creates a new database connection with production-grade
// configuration: path resolution, directory creation, WAL-mode
// connection string, connection pool sizing, and a connectivity check.
func New(cfg Config) (*DB, error) {
	if cfg.Name == "" {
		cfg.Name = "swarm"
	}

	// Handle file: URIs (used for in-memory databases in tests) - skip
	// filepath operations.
	if strings.HasPrefix(cfg.Path, "file:") {
		// file: URIs are used as-is, e.g. "file::memory:?cache=shared".
	} else {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
		}
		dir := filepath.Dir(absPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		cfg.Path = absPath
	}

	connStr := buildConnectionString(cfg.Path)

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}

	configureConnectionPool(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	db := &DB{
		conn: conn,
		path: cfg.Path,
		name: cfg.Name,
	}

	return db, nil
}

// buildConnectionString creates the SQLite connection string with the
// pragmas needed for many concurrent writers and one polling reader:
// WAL journaling, NORMAL synchronous (fsync at checkpoints, not on every
// write), a generous busy timeout so a writer never hard-fails under
// contention from 15 concurrent agents, and an incremental auto-vacuum so
// the circular-buffer log's deletes actually reclaim space over time.
func buildConnectionString(path string) string {
	connStr := path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(NORMAL)"
	connStr += "&_pragma=auto_vacuum(INCREMENTAL)"
	connStr += "&_pragma=temp_store(MEMORY)"
	connStr += "&_pragma=foreign_keys(0)" // relations are semantic only, §3
	connStr += "&_pragma=wal_autocheckpoint(1000)"
	connStr += "&_pragma=cache_size(-16000)" // 16MB cache, modest for a telemetry file
	connStr += "&_pragma=busy_timeout(5000)"
	return connStr
}

// configureConnectionPool sets up the connection pool for a telemetry
// store shared by many short-lived agent processes plus one long-lived
// dashboard process.
func configureConnectionPool(conn *sql.DB) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection, used by the telemetry
// store's table accessors to run prepared, parameterized statements.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Name returns the database name for logging.
func (db *DB) Name() string {
	return db.name
}

// Path returns the absolute path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies the embedded swarm state schema. Migration is
// idempotent: a schema already applied is tolerated rather than treated
// as failure, so repeated agent registrations against an already-
// initialized store never fail startup.
func (db *DB) Migrate() error {
	content, err := schemaFiles.ReadFile("schemas/swarm_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read embedded schema: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schema: %w", err)
	}

	if _, err := tx.Exec(string(content)); err != nil {
		_ = tx.Rollback()

		errStr := err.Error()
		if strings.Contains(errStr, "duplicate column") ||
			strings.Contains(errStr, "already exists") {
			_ = tx.Commit()
			return nil
		}

		return fmt.Errorf("failed to execute schema for %s: %w", db.name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema for %s: %w", db.name, err)
	}

	return nil
}

// WithTransaction executes fn within a database transaction, committing
// on success and rolling back on error or panic. Panics are converted to
// errors rather than propagated, so a bug in one agent's capture() call
// cannot take down its own process mid-write.
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = fmt.Errorf("failed to commit transaction: %w", commitErr)
			}
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck performs a ping plus a full integrity check. Integrity
// checks are comparatively expensive; prefer QuickCheck for frequent
// polling.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}

	var integrityResult string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		return fmt.Errorf("integrity check query failed for %s: %w", db.name, err)
	}
	if integrityResult != "ok" {
		return fmt.Errorf("integrity check failed for %s: %s", db.name, integrityResult)
	}

	return nil
}

// QuickCheck performs just a connectivity ping, cheap enough to run on
// every poll tick if a caller wants store-health visibility.
func (db *DB) QuickCheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// IncrementalVacuum reclaims freed pages without rewriting the whole
// file, used by the Telemetry Store's hourly maintenance sweep after
// pruning soft-deleted agents and evicted log rows.
func (db *DB) IncrementalVacuum() error {
	if _, err := db.conn.Exec("PRAGMA incremental_vacuum"); err != nil {
		return fmt.Errorf("incremental vacuum failed for %s: %w", db.name, err)
	}
	return nil
}

// Stats contains database statistics for monitoring and maintenance.
type Stats struct {
	SizeBytes     int64
	WALSizeBytes  int64
	PageCount     int64
	PageSize      int64
	FreelistCount int64
}

// GetStats retrieves file sizes, page counts, and free space information.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	if fileInfo, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
	}

	walPath := db.path + "-wal"
	if fileInfo, err := os.Stat(walPath); err == nil {
		stats.WALSizeBytes = fileInfo.Size()
	}

	if err := db.conn.QueryRow("PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := db.conn.QueryRow("PRAGMA page_size").Scan(&stats.PageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}
	if err := db.conn.QueryRow("PRAGMA freelist_count").Scan(&stats.FreelistCount); err != nil {
		return nil, fmt.Errorf("failed to get freelist count: %w", err)
	}

	return stats, nil
}
