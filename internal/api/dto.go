package api

import (
	"github.com/starford/dagaz/internal/agentservice"
	"github.com/starford/dagaz/internal/derive"
	"github.com/starford/dagaz/internal/migrate"
)

// MigrationRequest is the request body for running a migration.
type MigrationRequest struct {
	SourcePath string `json:"source_path" example:"prompts/code-reviewer.md" validate:"required"`
}

// AgentDetail is the full agent response type (aliased from the domain layer).
type AgentDetail = agentservice.AgentDetail

// AgentListItem is a lightweight item in a list response (aliased from the domain layer).
type AgentListItem = agentservice.AgentListItem

// AgentListResponse wraps paginated agent listings.
type AgentListResponse struct {
	Agents []AgentListItem `json:"agents" validate:"required"`
	Total  int             `json:"total" example:"42" validate:"required"`
}

// ArtifactResponse wraps one artifact body.
type ArtifactResponse struct {
	Agent    string `json:"agent" example:"code-reviewer" validate:"required"`
	Category string `json:"category" example:"workflow" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

// MigrationReport is the migration run summary (aliased from the engine).
type MigrationReport = migrate.Report

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id" example:"code-reviewer" validate:"required"`
	Role    string `json:"role" example:"reviewer" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// SkillsResponse wraps the loaded skill catalog.
type SkillsResponse struct {
	Skills []derive.CatalogEntry `json:"skills" validate:"required"`
}

// GraphNode is a node in the agent/skill usage graph.
type GraphNode struct {
	ID    string `json:"id" example:"code-reviewer" validate:"required"`
	Kind  string `json:"kind" example:"agent" validate:"required"`
	Label string `json:"label,omitempty" example:"reviewer"`
}

// GraphLink is an edge in the agent/skill usage graph.
type GraphLink struct {
	Source string `json:"source" example:"code-reviewer" validate:"required"`
	Target string `json:"target" example:"api-design" validate:"required"`
	Tier   string `json:"tier" example:"precompiled" validate:"required"`
}

// GraphResponse wraps the usage graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}
