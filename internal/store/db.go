// Package store persists members, attendance, users and import batches in
// SQLite or Postgres.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3  = "sqlite3" // mattn/go-sqlite3, cgo
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Config selects a driver and connection string.
type Config struct {
	Driver      string
	DSN         string
	LockTimeout time.Duration // SQLite file write lock wait; default 5s
}

// DB wraps the database connection
type DB struct {
	conn        *sqlx.DB
	driver      string
	sb          sq.StatementBuilderType
	lockPath    string // empty when no cross-process lock is needed
	lockTimeout time.Duration
	now         func() time.Time
	maxParams   int // bind parameters per statement
}

// defaultMaxParams stays under SQLite's historical 999 bind-parameter limit;
// Postgres allows 65535.
const defaultMaxParams = 999

// rowsPerStatement is how many rows of width columns fit in one statement.
func (db *DB) rowsPerStatement(width int) int {
	return max(1, db.maxParams/width)
}

// Open connects to the database and runs any pending migrations.
// For file-backed SQLite the parent directory is created if needed.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	db := &DB{
		driver:      driver,
		sb:          sq.StatementBuilder.PlaceholderFormat(sq.Question),
		lockTimeout: cfg.LockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		maxParams:   defaultMaxParams,
	}
	if db.lockTimeout <= 0 {
		db.lockTimeout = defaultLockTimeout
	}

	switch driver {
	case DriverSQLite, DriverSQLite3:
		if path := sqlitePath(cfg.DSN); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
			db.lockPath = path
		}
	case DriverPostgres:
		db.sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.conn = conn

	if db.isSQLite() {
		// Single connection: keeps :memory: databases alive and serializes writers.
		conn.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
		conn.ExecContext(ctx, "PRAGMA synchronous=NORMAL")
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.RunMigrations(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// sqlitePath extracts the file path from a SQLite DSN, or "" for in-memory databases.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}

// Driver returns the database driver name.
func (db *DB) Driver() string { return db.driver }

func (db *DB) isSQLite() bool {
	return db.driver == DriverSQLite || db.driver == DriverSQLite3
}

// Ping checks the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close checkpoints the WAL (SQLite) and closes the database connection.
func (db *DB) Close() error {
	if db.isSQLite() {
		db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return db.conn.Close()
}

// RunMigrations creates the schema and runs any pending migrations.
// Returns the number of migrations applied.
func (db *DB) RunMigrations(ctx context.Context) (int, error) {
	if _, err := db.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_info: %w", err)
	}

	current := db.SchemaVersion(ctx)
	if current >= SchemaVersion {
		return 0, nil
	}

	run := 0
	err := db.withWriteLock(func() error {
		if current == 0 {
			if _, err := db.conn.ExecContext(ctx, dialect(db.driver, schema)); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		for _, m := range Migrations {
			if m.Version <= current {
				continue
			}
			if _, err := db.conn.ExecContext(ctx, dialect(db.driver, m.SQL)); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
			if err := db.setSchemaVersion(ctx, m.Version); err != nil {
				return fmt.Errorf("set version %d: %w", m.Version, err)
			}
			run++
		}
		return db.setSchemaVersion(ctx, SchemaVersion)
	})
	return run, err
}

// SchemaVersion returns the recorded schema version, 0 for a fresh database.
func (db *DB) SchemaVersion(ctx context.Context) int {
	var version string
	err := db.conn.QueryRowxContext(ctx, "SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err != nil {
		return 0
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v
}

func (db *DB) setSchemaVersion(ctx context.Context, version int) error {
	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`INSERT INTO schema_info (key, value) VALUES ('version', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		fmt.Sprintf("%d", version))
	return err
}

// withWriteLock runs fn holding the cross-process SQLite write lock, if any.
func (db *DB) withWriteLock(fn func() error) error {
	if db.lockPath == "" {
		return fn()
	}
	locker := newWriteLocker(db.lockPath)
	if err := locker.acquire(db.lockTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// withTx runs fn in a transaction under the write lock. fn's error rolls back.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return db.withWriteLock(func() error {
		tx, err := db.conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// exec runs a single write statement under the write lock.
func (db *DB) exec(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := db.withWriteLock(func() error {
		res, err := db.conn.ExecContext(ctx, db.conn.Rebind(query), args...)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return n, err
}

// generateID creates a prefixed ID with 16 random hex chars.
func generateID(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}
