// Package index keeps a local SQLite snapshot of each tracked user's decoded
// entries, with optional FTS5 full-text search.
package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	user_id      TEXT PRIMARY KEY,
	address      TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	checksum     TEXT NOT NULL DEFAULT '',
	entry_count  INTEGER NOT NULL DEFAULT 0,
	refreshed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
	user_id TEXT NOT NULL,
	seq     INTEGER NOT NULL,
	unix_ts INTEGER NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_entries_user_ts ON entries(user_id, unix_ts DESC);
`

// DB wraps a sql.DB with snapshot-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
