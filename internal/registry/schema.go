// Package registry provides the SQLite-backed agent configuration registry
// with optional FTS5 full-text search.
package registry

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS agents (
	id                 TEXT PRIMARY KEY,
	source_path        TEXT NOT NULL DEFAULT '',
	source_checksum    TEXT NOT NULL DEFAULT '',
	role               TEXT NOT NULL DEFAULT '',
	domain             TEXT NOT NULL DEFAULT '',
	primary_prompt_set TEXT NOT NULL DEFAULT '',
	ending_prompt_set  TEXT NOT NULL DEFAULT '',
	output_format      TEXT NOT NULL DEFAULT '',
	skills_precompiled TEXT NOT NULL DEFAULT '[]',
	skills_dynamic     TEXT NOT NULL DEFAULT '[]',
	body               TEXT NOT NULL DEFAULT '',
	migrated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	agent_id     TEXT NOT NULL,
	block_counts TEXT NOT NULL DEFAULT '{}',
	warnings     TEXT NOT NULL DEFAULT '[]',
	status       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_agent ON runs(agent_id);
`

// DB wraps a sql.DB with registry-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
