//go:build sqlite_fts5

package registry

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS agents_fts USING fts5(
			id UNINDEXED,
			role,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, role, body string) error {
	_, _ = tx.Exec(`DELETE FROM agents_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO agents_fts (id, role, body) VALUES (?, ?, ?)`, id, role, body)
	if err != nil {
		return fmt.Errorf("registry: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM agents_fts WHERE id = ?`, id)
}

// Search performs an FTS5 full-text search and returns matching agents with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       role,
		       snippet(agents_fts, 2, '<b>', '</b>', '...', 64)
		FROM agents_fts
		WHERE agents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("registry: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Role, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
