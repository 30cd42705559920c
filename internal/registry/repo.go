package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/dagaz/internal/models"
)

// AgentRow represents a row in the agents table: one ConfigurationRecord
// plus its provenance.
type AgentRow struct {
	ID                string
	SourcePath        string
	SourceChecksum    string
	Role              string
	Domain            string
	PrimaryPromptSet  string
	EndingPromptSet   string
	OutputFormat      string
	SkillsPrecompiled []models.SkillRef
	SkillsDynamic     []models.SkillRef
	MigratedAt        time.Time
}

// RunRow is one migration audit entry in the runs table. It is returned
// verbatim in agent detail responses, hence the json tags.
type RunRow struct {
	ID          string         `json:"id"`
	AgentID     string         `json:"agent_id"`
	BlockCounts map[string]int `json:"block_counts"`
	Warnings    []string       `json:"warnings,omitempty"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string
	Role    string
	Snippet string
}

// UpsertAgent inserts or replaces an agent row and its FTS entry within a
// transaction. body is the searchable artifact text, stored for the LIKE
// fallback and indexed by FTS5 when compiled in. Upserting the same id twice
// leaves exactly one row, so re-migration is idempotent.
func (db *DB) UpsertAgent(a AgentRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("registry: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	pre, _ := json.Marshal(a.SkillsPrecompiled)
	dyn, _ := json.Marshal(a.SkillsDynamic)

	_, err = tx.Exec(`
		INSERT INTO agents (id, source_path, source_checksum, role, domain,
			primary_prompt_set, ending_prompt_set, output_format,
			skills_precompiled, skills_dynamic, body, migrated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_path        = excluded.source_path,
			source_checksum    = excluded.source_checksum,
			role               = excluded.role,
			domain             = excluded.domain,
			primary_prompt_set = excluded.primary_prompt_set,
			ending_prompt_set  = excluded.ending_prompt_set,
			output_format      = excluded.output_format,
			skills_precompiled = excluded.skills_precompiled,
			skills_dynamic     = excluded.skills_dynamic,
			body               = excluded.body,
			migrated_at        = excluded.migrated_at
	`, a.ID, a.SourcePath, a.SourceChecksum, a.Role, a.Domain,
		a.PrimaryPromptSet, a.EndingPromptSet, a.OutputFormat,
		string(pre), string(dyn), body, a.MigratedAt)
	if err != nil {
		return fmt.Errorf("registry: upsert agent: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, a.ID, a.Role, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteAgent removes an agent, its FTS entry, and its run history.
func (db *DB) DeleteAgent(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("registry: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM runs WHERE agent_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM agents WHERE id = ?`, id)

	return tx.Commit()
}

// DeleteBySourcePath removes the agent migrated from the given source path
// and returns its id, or empty string when no agent matches.
func (db *DB) DeleteBySourcePath(path string) (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM agents WHERE source_path = ?`, path).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("registry: lookup by source: %w", err)
	}
	return id, db.DeleteAgent(id)
}

// GetAgent returns one agent row, or nil when the id is unknown.
func (db *DB) GetAgent(id string) (*AgentRow, error) {
	row := db.conn.QueryRow(`
		SELECT id, source_path, source_checksum, role, domain,
		       primary_prompt_set, ending_prompt_set, output_format,
		       skills_precompiled, skills_dynamic, migrated_at
		FROM agents WHERE id = ?
	`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get agent: %w", err)
	}
	return a, nil
}

// ListAgents returns agents ordered by id, with optional role filter and
// limit/offset pagination, plus the total row count for the filter.
func (db *DB) ListAgents(limit, offset int, role string) ([]AgentRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if role != "" {
		where = "WHERE role = ?"
		args = append(args, role)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM agents `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("registry: count agents: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := db.conn.Query(`
		SELECT id, source_path, source_checksum, role, domain,
		       primary_prompt_set, ending_prompt_set, output_format,
		       skills_precompiled, skills_dynamic, migrated_at
		FROM agents `+where+`
		ORDER BY id
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("registry: list agents: %w", err)
	}
	defer rows.Close()

	var out []AgentRow
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// GetChecksum returns the stored source checksum for an agent, or empty
// string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT source_checksum FROM agents WHERE id = ?`, id).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns source_path → source_checksum for every agent. Keyed
// by source path because the reconcile pass compares against the on-disk tree.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT source_path, source_checksum FROM agents`)
	if err != nil {
		return nil, fmt.Errorf("registry: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// InsertRun appends one migration audit entry.
func (db *DB) InsertRun(r RunRow) error {
	counts, _ := json.Marshal(r.BlockCounts)
	warns, _ := json.Marshal(r.Warnings)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, agent_id, block_counts, warnings, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.AgentID, string(counts), string(warns), r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("registry: insert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs for an agent, newest first.
func (db *DB) ListRuns(agentID string, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, agent_id, block_counts, warnings, status, created_at
		FROM runs WHERE agent_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("registry: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		var counts, warns string
		if err := rows.Scan(&r.ID, &r.AgentID, &counts, &warns, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(counts), &r.BlockCounts)
		_ = json.Unmarshal([]byte(warns), &r.Warnings)
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(r rowScanner) (*AgentRow, error) {
	var a AgentRow
	var pre, dyn string
	if err := r.Scan(&a.ID, &a.SourcePath, &a.SourceChecksum, &a.Role, &a.Domain,
		&a.PrimaryPromptSet, &a.EndingPromptSet, &a.OutputFormat,
		&pre, &dyn, &a.MigratedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(pre), &a.SkillsPrecompiled)
	_ = json.Unmarshal([]byte(dyn), &a.SkillsDynamic)
	return &a, nil
}
