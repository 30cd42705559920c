// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Dagaz migration tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/agentservice"
	"github.com/starford/dagaz/internal/models"
)

// Server wraps the MCP server with Dagaz tools.
type Server struct {
	mcp *server.MCPServer
	svc *agentservice.Service
}

// New creates a new MCP server with all Dagaz tools registered.
func New(svc *agentservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("migrate_document",
		mcp.WithDescription("Migrate one monolithic prompt document from the source tree "+
			"into category artifacts plus a derived configuration record. The document MUST "+
			"follow the source format; read it first via the get_source_contract tool or the "+
			"dagaz://source-format resource."),
		mcp.WithString("source_path", mcp.Required(), mcp.Description("Relative path of the source document (e.g. prompts/code-reviewer.md)")),
	), s.migrateDocument)

	s.mcp.AddTool(mcp.NewTool("list_agents",
		mcp.WithDescription("List migrated agents, optionally filtered by role."),
		mcp.WithString("role", mcp.Description("Optional role filter (implementer, reviewer, planner, utility)")),
	), s.listAgents)

	s.mcp.AddTool(mcp.NewTool("get_agent_config",
		mcp.WithDescription("Get one agent's derived configuration record: prompt sets, "+
			"output format, and the precompiled/dynamic skill partition."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Agent id")),
	), s.getAgentConfig)

	s.mcp.AddTool(mcp.NewTool("read_artifact",
		mcp.WithDescription("Read one emitted artifact body for an agent. Category is one of "+
			"intro, workflow, examples, critical_requirements, critical_reminders."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Agent id")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Artifact category")),
	), s.readArtifact)

	s.mcp.AddTool(mcp.NewTool("search_agents",
		mcp.WithDescription("Full-text search through migrated agents' intro and workflow artifacts."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchAgents)

	s.mcp.AddTool(mcp.NewTool("get_source_contract",
		mcp.WithDescription("Returns the canonical source document format contract. "+
			"Call this before authoring documents intended for migration."),
	), s.getSourceContract)

	// Resource: source document format contract.
	s.mcp.AddResource(
		mcp.NewResource("dagaz://source-format", "Source Document Format Contract",
			mcp.WithResourceDescription("Canonical monolithic prompt document format that migratable documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSourceFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) migrateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourcePath, err := req.RequireString("source_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.MigrateDocument(ctx, sourcePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("migration failed: %v", err)), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listAgents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	role := ""
	if r, err := req.RequireString("role"); err == nil {
		role = r
	}
	items, _, err := s.svc.ListAgents(ctx, 0, 0, role)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no agents found"), nil
	}
	var lines []string
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%s", item.ID, item.Role, item.Domain, item.SourcePath))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getAgentConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	agent, err := s.svc.GetAgent(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(agent, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.svc.ReadArtifact(ctx, id, models.Category(category))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", id, category)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) searchAgents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSourceContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SourceFormatContract), nil
}

func (s *Server) readSourceFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "dagaz://source-format",
			MIMEType: "text/markdown",
			Text:     SourceFormatContract,
		},
	}, nil
}
