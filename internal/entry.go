// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
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

	"github.com/starford/ledgernotes/internal/api"
	"github.com/starford/ledgernotes/internal/index"
	"github.com/starford/ledgernotes/internal/indexer"
	"github.com/starford/ledgernotes/internal/ledger"
	"github.com/starford/ledgernotes/internal/mcpserver"
	"github.com/starford/ledgernotes/internal/metrics"
	"github.com/starford/ledgernotes/internal/notes"
	"github.com/starford/ledgernotes/internal/resolver"
	"github.com/starford/ledgernotes/internal/sse"
)

// setup applies opts, checks the config and installs the JSON logger as
// the slog default.
func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// pipeline is the wired retrieval service and the resources it holds.
type pipeline struct {
	svc     *notes.Service
	closers []func()
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// buildPipeline wires ledger client, indexed lookup, resolver and notes
// service from cfg.
func buildPipeline(ctx context.Context, cfg *Config, logger *slog.Logger) (*pipeline, error) {
	p := &pipeline{}

	client, err := ledger.NewClient(cfg.Ledger.NodeURL, cfg.Ledger.Timeout, ledger.WithAPIKey(cfg.Ledger.APIKey))
	if err != nil {
		return nil, err
	}

	var indexed resolver.Lookup
	switch cfg.Indexer.Mode {
	case IndexerModeGraphQL:
		g, err := indexer.NewGraphQL(cfg.Indexer.URL, cfg.Indexer.APIKey, cfg.Indexer.Schema(), cfg.Indexer.Timeout)
		if err != nil {
			return nil, err
		}
		indexed = g
	case IndexerModePostgres:
		pg, err := indexer.NewPostgres(ctx, cfg.Indexer.DatabaseURL, cfg.Indexer.Schema(), logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, pg.Close)
		indexed = pg
	}

	res, err := resolver.New(indexed, ledger.NewViewLookup(client, cfg.Ledger.ViewFunction), logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	cached, err := resolver.NewCached(res, cfg.Resolver.CacheSize)
	if err != nil {
		p.Close()
		return nil, err
	}

	svc, err := notes.NewService(cached, client, notes.Options{
		ResourceType: cfg.Ledger.ResourceType,
		MapField:     cfg.Ledger.MapField,
		MaxDepth:     cfg.Ledger.MaxDepth,
	}, logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.svc = svc
	return p, nil
}

// Run starts the HTTP server and, when a watchlist is configured, the
// background refresher.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("node_url", cfg.Ledger.NodeURL),
		slog.String("indexer_mode", cfg.Indexer.Mode),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	defer p.Close()

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	broker := sse.NewBroker(sse.Options{})
	defer broker.Close()

	apiRouter := api.NewRouter(p.svc, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Refresh.Enabled() {
		g.Go(func() error {
			return index.Watch(gCtx, db, p.svc, index.WatchOptions{
				WatchlistPath: cfg.Refresh.WatchlistPath,
				Interval:      cfg.Refresh.Interval,
				Concurrency:   cfg.Refresh.Concurrency,
			}, logger, broker.PublishEntryEvent)
		})
	}

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
		defer signal.Stop(quit)

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

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunEntries retrieves one user's entries from the ledger and writes them
// to w as indented JSON.
func RunEntries(ctx context.Context, userID string, w io.Writer, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	p, err := buildPipeline(ctx, app.config, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	defer p.Close()

	entries, err := p.svc.GetEntries(ctx, userID)
	if err != nil {
		return err
	}
	return writeIndented(w, entries)
}

// RunResolve resolves one user's storage address and writes the result to w.
func RunResolve(ctx context.Context, userID string, w io.Writer, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	p, err := buildPipeline(ctx, app.config, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	defer p.Close()

	return writeIndented(w, p.svc.ResolveAddress(ctx, userID))
}

// RunMCP serves the MCP tools over stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	p, err := buildPipeline(ctx, app.config, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	defer p.Close()

	db, err := index.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(p.svc, db, app.version).ServeStdio()
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
