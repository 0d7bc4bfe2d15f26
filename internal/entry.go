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

	"github.com/zet-dev/zet/internal/api"
	"github.com/zet-dev/zet/internal/index"
	"github.com/zet-dev/zet/internal/mcpserver"
	"github.com/zet-dev/zet/internal/sse"
	"github.com/zet-dev/zet/internal/storage"
)

// bootstrap initializes the logger, storage, and cache shared by all run
// modes. logOut lets the MCP mode keep stdout free for the stdio transport.
func bootstrap(cfg *Config, logOut io.Writer) (*slog.Logger, storage.Provider, *index.DB, error) {
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Collection.Path, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create collection dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Collection.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init cache: %w", err)
	}

	return logger, store, db, nil
}

// Run starts the full application (HTTP API, watcher, SSE) with the given
// options and blocks until shutdown.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, store, db, err := bootstrap(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("collection_path", cfg.Collection.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker; the syncer feeds it through the event callback.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	syncer := index.NewSyncer(db, store, logger, cfg.Sync.Concurrency, func(kind, path string) {
		broker.PublishDocumentEvent(kind, path)
	})

	// Initial sync before serving so the cache reflects the collection.
	if summary, syncErr := syncer.Run(ctx); syncErr != nil {
		logger.Warn("initial sync failed", slog.String("error", syncErr.Error()))
	} else if summary.ErrorCount() > 0 {
		logger.Warn("initial sync finished with file errors", slog.Int("errors", summary.ErrorCount()))
	}

	// Build API service and router.
	svc := api.NewService(store, db, syncer)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Start file watcher.
	if cfg.Collection.Watch {
		g.Go(func() error {
			if watchErr := index.Watch(gCtx, syncer, cfg.Collection.Path, logger); watchErr != nil {
				logger.Error("watcher failed", slog.String("error", watchErr.Error()))
			}
			return nil
		})
	}

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

// RunSync performs a single sync pass and exits. Used by the `sync` CLI
// command and suitable for cron-style invocation.
func RunSync(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, store, db, err := bootstrap(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer db.Close()

	syncer := index.NewSyncer(db, store, logger, cfg.Sync.Concurrency, nil)
	summary, err := syncer.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if summary.ErrorCount() > 0 {
		return fmt.Errorf("sync finished with %d file error(s)", summary.ErrorCount())
	}
	return nil
}

// RunMCP starts the MCP server on stdin/stdout. Logs go to stderr so the
// stdio transport stays clean.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, store, db, err := bootstrap(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer db.Close()

	syncer := index.NewSyncer(db, store, logger, cfg.Sync.Concurrency, nil)
	if _, syncErr := syncer.Run(ctx); syncErr != nil {
		logger.Warn("initial sync failed", slog.String("error", syncErr.Error()))
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(store, db, syncer).ServeStdio()
}
