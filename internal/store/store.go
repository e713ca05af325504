// Package store provides the durable SQLite-backed record store.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id           TEXT PRIMARY KEY,
	capture_date TEXT NOT NULL,
	note         TEXT NOT NULL DEFAULT '',
	mood         TEXT NOT NULL DEFAULT '',
	age_label    TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_records_capture_date ON records(capture_date);

CREATE TABLE IF NOT EXISTS images (
	id         TEXT NOT NULL,
	record_id  TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	payload    BLOB NOT NULL,
	mime_type  TEXT NOT NULL,
	remote_url TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (record_id, id)
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with record-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
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
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
