// Package db persists finished assessment runs in sqlite.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection for the run store.
type DB struct {
	*sql.DB
}

// Schema is the baseline table layout. EnsureSchema applies it directly for
// tests and fresh installs; production databases are managed through the
// migrations directory (see migrate.go), whose initial migration matches
// this schema exactly.
const Schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id         TEXT PRIMARY KEY,
		source         TEXT NOT NULL,
		started_at     TIMESTAMP NOT NULL,
		ended_at       TIMESTAMP NOT NULL,
		completed      INTEGER NOT NULL,
		total          INTEGER NOT NULL,
		percent        INTEGER NOT NULL,
		level          TEXT NOT NULL,
		narrative      TEXT NOT NULL,
		authoritative  INTEGER NOT NULL DEFAULT 0,
		created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS run_steps (
		run_id         TEXT NOT NULL,
		seq            INTEGER NOT NULL,
		step_key       TEXT NOT NULL,
		kind           TEXT NOT NULL,
		status         TEXT NOT NULL,
		target         INTEGER NOT NULL,
		achieved       INTEGER NOT NULL,
		duration_ms    BIGINT NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY(run_id) REFERENCES runs(run_id)
	);
`

// NewDB opens (or creates) the sqlite database at path.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &DB{conn}, nil
}

// EnsureSchema applies the baseline schema.
func (db *DB) EnsureSchema() error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
