// Package store persists tensions, their event log, and the Google OAuth
// token in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/helix/internal/tension"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tensions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'held',
	charge     INTEGER NOT NULL DEFAULT 3,
	vector     TEXT NOT NULL DEFAULT 'unknown',
	return_at  DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tensions_status ON tensions(status);
CREATE INDEX IF NOT EXISTS idx_tensions_return_at ON tensions(return_at);

CREATE TABLE IF NOT EXISTS tension_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	tension_id INTEGER NOT NULL REFERENCES tensions(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	actor      TEXT NOT NULL DEFAULT 'user',
	payload    TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tension_events_tension ON tension_events(tension_id);
CREATE INDEX IF NOT EXISTS idx_tension_events_type ON tension_events(type, actor);

CREATE TABLE IF NOT EXISTS google_tokens (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_type    TEXT NOT NULL DEFAULT '',
	scope         TEXT NOT NULL DEFAULT '',
	expiry        DATETIME,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);
`

// Store defines the persistence operations used by the services.
// Consumers depend on this interface rather than on *DB.
type Store interface {
	CreateTension(ctx context.Context, t tension.Tension, actor tension.Actor) (tension.Tension, error)
	GetTension(ctx context.Context, id int64) (tension.Tension, error)
	ListActive(ctx context.Context, limit int) ([]tension.Tension, error)
	Search(ctx context.Context, query string, limit int) ([]tension.Tension, error)
	UpdateTension(ctx context.Context, id int64, p Patch, actor tension.Actor, now time.Time) (tension.Tension, error)
	Postpone(ctx context.Context, id int64, until time.Time, actor tension.Actor, now time.Time) (tension.Tension, error)
	Events(ctx context.Context, tensionID int64) ([]tension.Event, error)
	Return(ctx context.Context, pick ReturnPicker, now time.Time) error

	GoogleToken(ctx context.Context) (Token, error)
	SaveGoogleToken(ctx context.Context, tok Token, now time.Time) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB with helix-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_loc=UTC&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := initSearch(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply search schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
