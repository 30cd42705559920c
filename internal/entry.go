// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dagaz/internal/agentservice"
	"github.com/starford/dagaz/internal/api"
	"github.com/starford/dagaz/internal/classify"
	"github.com/starford/dagaz/internal/derive"
	"github.com/starford/dagaz/internal/mcpserver"
	"github.com/starford/dagaz/internal/migrate"
	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/sse"
	"github.com/starford/dagaz/internal/storage"
)

// components holds the wired application core shared by the serve and mcp
// entry points. Close releases the registry handle.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	src     storage.Provider
	out     storage.Provider
	reg     *registry.DB
	catalog *derive.Catalog
	eng     *migrate.Engine
	svc     *agentservice.Service
}

func (c *components) Close() {
	if c.reg != nil {
		c.reg.Close()
	}
}

// buildComponents wires storage, registry, rule tables, and the migration
// engine from the configuration. logW receives the structured log stream;
// the MCP entry point must keep stdout clean for the stdio transport.
func buildComponents(cfg *Config, logW io.Writer) (*components, error) {
	logger := slog.New(slog.NewJSONHandler(logW, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	for _, dir := range []string{cfg.Sources.Path, cfg.Output.Path} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	src, err := storage.NewFS(cfg.Sources.Path)
	if err != nil {
		return nil, fmt.Errorf("init source storage: %w", err)
	}
	out, err := storage.NewFS(cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("init output storage: %w", err)
	}

	reg, err := registry.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init registry: %w", err)
	}

	catalog := &derive.Catalog{}
	if cfg.Migration.CatalogFile != "" {
		catalog, err = derive.LoadCatalog(cfg.Migration.CatalogFile)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("load skill catalog: %w", err)
		}
	}
	table := derive.DefaultDecisionTable()
	if cfg.Migration.RolesFile != "" {
		table, err = derive.LoadDecisionTable(cfg.Migration.RolesFile)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("load decision table: %w", err)
		}
	}

	rules, err := classify.NewRuleset(classify.DefaultMarkerSets(),
		classify.LeadingWindow(cfg.Migration.IntroWindow))
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("build ruleset: %w", err)
	}

	eng, err := migrate.NewEngine(migrate.Options{
		Rules:       rules,
		Deriver:     derive.New(table, catalog, ""),
		Output:      out,
		Registry:    reg,
		Logger:      logger,
		Tolerance:   cfg.Migration.VerifyTolerance,
		KeepSuspect: cfg.Migration.KeepSuspect,
	})
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}

	svc := agentservice.NewService(eng, src, out, reg, catalog)

	return &components{
		cfg:     cfg,
		logger:  logger,
		src:     src,
		out:     out,
		reg:     reg,
		catalog: catalog,
		eng:     eng,
		svc:     svc,
	}, nil
}

// Run starts the HTTP server with the given options: initial source-tree
// sync, file watcher, SSE broker, and the REST API.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	c, err := buildComponents(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer c.Close()

	logger := c.logger
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sources_path", cfg.Sources.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Bring the registry up to date with the source tree before serving.
	if err := migrate.Sync(ctx, c.eng, c.src, c.reg, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start source-tree watcher with SSE callback.
	g.Go(func() error {
		err := migrate.Watch(gCtx, c.eng, c.src, c.reg, cfg.Sources.Path, logger,
			func(kind, id string) {
				broker.PublishAgentEvent(kind, id)
			})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdin/stdout with the given options.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	// Logs go to stderr: stdout carries the MCP stdio transport.
	c, err := buildComponents(app.config, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	c.logger.Info("MCP server starting (stdio)")
	return mcpserver.New(c.svc).ServeStdio()
}
