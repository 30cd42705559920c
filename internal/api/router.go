package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/agentservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *agentservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Agents.
	r.Get("/agents", h.ListAgents)
	r.Get("/agents/{id}", h.GetAgent)
	r.Get("/agents/{id}/artifacts/{category}", h.GetArtifact)

	// Migrations.
	r.Post("/migrations", h.CreateMigration)

	// Skill catalog.
	r.Get("/skills", h.ListSkills)

	// Search.
	r.Get("/search", h.Search)

	// Graph.
	r.Get("/graph", h.Graph)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
