// Package agentservice coordinates the migration engine, the artifact
// store, and the registry behind one transport-friendly surface.
package agentservice

import (
	"context"
	"errors"
	"os"
	"path"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/derive"
	"github.com/starford/dagaz/internal/migrate"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/storage"
)

// AgentListItem is a lightweight item in a list response.
type AgentListItem struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Domain     string    `json:"domain"`
	SourcePath string    `json:"source_path"`
	MigratedAt time.Time `json:"migrated_at"`
}

// AgentDetail is the full representation of a migrated agent: its derived
// configuration record, provenance, and recent run history.
type AgentDetail struct {
	AgentListItem
	SourceChecksum    string             `json:"source_checksum"`
	PrimaryPromptSet  string             `json:"primary_prompt_set"`
	EndingPromptSet   string             `json:"ending_prompt_set"`
	OutputFormat      string             `json:"output_format"`
	SkillsPrecompiled []models.SkillRef  `json:"skills_precompiled"`
	SkillsDynamic     []models.SkillRef  `json:"skills_dynamic"`
	Runs              []registry.RunRow  `json:"runs"`
}

// Service coordinates engine, storage, and registry operations.
type Service struct {
	eng     *migrate.Engine
	src     storage.Provider
	out     storage.Provider
	reg     registry.AgentRegistry
	catalog *derive.Catalog
}

// NewService creates a new agent service.
func NewService(eng *migrate.Engine, src, out storage.Provider, reg registry.AgentRegistry, catalog *derive.Catalog) *Service {
	if catalog == nil {
		catalog = &derive.Catalog{}
	}
	return &Service{eng: eng, src: src, out: out, reg: reg, catalog: catalog}
}

// MigrateDocument reads one source document from the source tree and runs
// the full pipeline on it.
func (s *Service) MigrateDocument(ctx context.Context, sourcePath string) (*migrate.Report, error) {
	data, err := s.src.Read(sourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.eng.Migrate(ctx, sourcePath, data)
}

// GetAgent returns one agent's full detail, including its recent runs.
func (s *Service) GetAgent(_ context.Context, id string) (*AgentDetail, error) {
	row, err := s.reg.GetAgent(id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.ErrNotFound
	}
	runs, err := s.reg.ListRuns(id, 10)
	if err != nil {
		return nil, err
	}
	return &AgentDetail{
		AgentListItem: AgentListItem{
			ID:         row.ID,
			Role:       row.Role,
			Domain:     row.Domain,
			SourcePath: row.SourcePath,
			MigratedAt: row.MigratedAt,
		},
		SourceChecksum:    row.SourceChecksum,
		PrimaryPromptSet:  row.PrimaryPromptSet,
		EndingPromptSet:   row.EndingPromptSet,
		OutputFormat:      row.OutputFormat,
		SkillsPrecompiled: nonNilSlice(row.SkillsPrecompiled),
		SkillsDynamic:     nonNilSlice(row.SkillsDynamic),
		Runs:              nonNilSlice(runs),
	}, nil
}

// ListAgents returns paginated agents with an optional role filter.
func (s *Service) ListAgents(_ context.Context, limit, offset int, role string) ([]AgentListItem, int, error) {
	rows, total, err := s.reg.ListAgents(limit, offset, role)
	if err != nil {
		return nil, 0, err
	}
	items := make([]AgentListItem, len(rows))
	for i, r := range rows {
		items[i] = AgentListItem{
			ID:         r.ID,
			Role:       r.Role,
			Domain:     r.Domain,
			SourcePath: r.SourcePath,
			MigratedAt: r.MigratedAt,
		}
	}
	return items, total, nil
}

// ReadArtifact returns the body of one emitted artifact for an agent.
// category must be one of the five output categories.
func (s *Service) ReadArtifact(_ context.Context, id string, category models.Category) (string, error) {
	filename, ok := models.ArtifactFilename[category]
	if !ok {
		return "", apperr.ErrNotFound
	}
	data, err := s.out.Read(path.Join(id, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// Search delegates full-text search to the registry.
func (s *Service) Search(_ context.Context, query string, limit int) ([]registry.SearchResult, error) {
	return s.reg.Search(query, limit)
}

// Graph returns the agent→skill usage graph.
func (s *Service) Graph(_ context.Context) ([]registry.GraphNode, []registry.GraphLink, error) {
	return s.reg.Graph()
}

// Skills returns the loaded skill catalog.
func (s *Service) Skills(_ context.Context) []derive.CatalogEntry {
	return s.catalog.Skills
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
