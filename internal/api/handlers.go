package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/agentservice"
	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *agentservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *agentservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListAgents handles GET /api/agents.
//
//	@Summary		List migrated agents with optional pagination and role filter
//	@Tags			agents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			role	query		string	false	"Filter by role"
//	@Success		200		{object}	AgentListResponse
//	@Security		BearerAuth
//	@Router			/agents [get]
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	role := q.Get("role")

	items, total, err := h.svc.ListAgents(r.Context(), limit, offset, role)
	if err != nil {
		slog.Error("list agents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agents": items,
		"total":  total,
	})
}

// GetAgent handles GET /api/agents/{id}.
//
//	@Summary		Get a single agent's configuration record and run history
//	@Tags			agents
//	@Produce		json
//	@Param			id	path		string	true	"Agent id"
//	@Success		200	{object}	AgentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/agents/{id} [get]
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	agent, err := h.svc.GetAgent(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get agent failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// GetArtifact handles GET /api/agents/{id}/artifacts/{category}.
//
//	@Summary		Read one emitted artifact body
//	@Tags			agents
//	@Produce		json
//	@Param			id			path		string	true	"Agent id"
//	@Param			category	path		string	true	"Artifact category"	Enums(intro, workflow, examples, critical_requirements, critical_reminders)
//	@Success		200			{object}	ArtifactResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/agents/{id}/artifacts/{category} [get]
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	category := chi.URLParam(r, "category")

	content, err := h.svc.ReadArtifact(r.Context(), id, models.Category(category))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get artifact failed", slog.String("id", id),
				slog.String("category", category), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ArtifactResponse{Agent: id, Category: category, Content: content})
}

// CreateMigration handles POST /api/migrations.
//
//	@Summary		Migrate one source document through the full pipeline
//	@Tags			migrations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MigrationRequest	true	"Document to migrate"
//	@Success		201		{object}	MigrationReport
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/migrations [post]
func (h *Handler) CreateMigration(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req MigrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.SourcePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source_path is required"))
		return
	}

	report, err := h.svc.MigrateDocument(r.Context(), req.SourcePath)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("source document not found"))
		case errors.Is(err, apperr.ErrUnresolvedRole),
			errors.Is(err, apperr.ErrAmbiguousClassification),
			errors.Is(err, apperr.ErrContentLoss):
			// Deterministic structural failures: the document itself is the
			// problem, not the server.
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		default:
			slog.Error("migration failed", slog.String("source", req.SourcePath), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ListSkills handles GET /api/skills.
//
//	@Summary		List the loaded domain skill catalog
//	@Tags			skills
//	@Produce		json
//	@Success		200	{object}	SkillsResponse
//	@Security		BearerAuth
//	@Router			/skills [get]
func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"skills": h.svc.Skills(r.Context()),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across migrated agents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, SearchResult{ID: row.ID, Role: row.Role, Snippet: row.Snippet})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the agent/skill usage graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}
