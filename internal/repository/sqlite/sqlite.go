// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so the server builds anywhere Go does.
//
// CONNECTIONS:
// The pool is pinned to a single connection. SQLite serialises writers
// anyway, PRAGMAs such as foreign_keys are per connection, and ":memory:"
// databases are private to the connection that opened them. One connection
// keeps all three behaving the same way in tests and in production.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"

	"github.com/sakif/px/internal/idgen"
)

// foldFunc is the SQL name of the Unicode case fold used by Search.
// SQLite's built-in lower() only folds ASCII.
const foldFunc = "px_fold"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, fold)
}

func fold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", foldFunc, v)
	}
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn     *sql.DB
	generate idgen.Generator
	now      func() time.Time
}

// Option customises a DB at construction time.
type Option func(*DB)

// WithGenerator replaces the id generator used by Allocate.
func WithGenerator(gen idgen.Generator) Option {
	return func(db *DB) {
		db.generate = gen
	}
}

// WithClock replaces the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/px.db"  → file-based database (persistent)
//   - ":memory:"    → in-memory database (tests)
func New(dbPath string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	// It is a no-op for in-memory databases.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. links.tag_id relies on them
	// for referential integrity and for the delete cascade.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// Concurrent allocations from other processes wait instead of failing.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{
		conn:     conn,
		generate: idgen.New,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database still answers. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

func (db *DB) nowMillis() int64 {
	return db.now().UnixMilli()
}

// migrate runs all database migrations.
// CREATE ... IF NOT EXISTS keeps every statement safe to re-run on startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			meta       TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			CHECK (updated_at >= created_at)
		);
		CREATE INDEX IF NOT EXISTS idx_tags_updated_at ON tags(updated_at);
	`)
	if err != nil {
		return fmt.Errorf("creating tags table: %w", err)
	}

	// Link ids are xids: unique and sortable by creation time, so ordering by
	// id gives insertion order.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS links (
			id         TEXT PRIMARY KEY,
			tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			type       TEXT NOT NULL,
			url        TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_links_tag_id ON links(tag_id, type);
	`)
	if err != nil {
		return fmt.Errorf("creating links table: %w", err)
	}

	return nil
}
