// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/saga/internal/api"
	"github.com/starford/saga/internal/eventdate"
	"github.com/starford/saga/internal/index"
	"github.com/starford/saga/internal/mcpserver"
	"github.com/starford/saga/internal/sse"
	"github.com/starford/saga/internal/storage"
	"github.com/starford/saga/internal/storyservice"
)

const (
	timelineThrottle = 2 * time.Second
	sseHeartbeat     = 30 * time.Second
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	svc    *storyservice.Service
}

func (rt *runtime) close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index failed", slog.String("error", err.Error()))
	}
}

// setup applies opts, builds the logger and opens the vault and index.
func setup(opts []Option) (*application, *runtime, error) {
	app := &application{version: "dev", logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("custom_fields_mode", cfg.Entities.CustomFieldsMode),
		slog.String("locale", cfg.Entities.Locale),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svcCfg, err := cfg.Entities.ServiceConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("entities config: %w", err)
	}

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	svc := storyservice.NewService(store, db, svcCfg, logger)

	return app, &runtime{cfg: cfg, logger: logger, store: store, db: db, svc: svc}, nil
}

// Run starts the HTTP API, the vault watcher and the SSE broker.
func Run(ctx context.Context, opts ...Option) error {
	_, rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger, svc := rt.cfg, rt.logger, rt.svc

	// Run initial sync.
	if err := svc.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(timelineThrottle, sse.WithHeartbeat(sseHeartbeat))
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Vault.Path)

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
		if err := rt.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)
	gCtx, stopWatcher := context.WithCancel(gCtx)
	defer stopWatcher()

	// Start file watcher with SSE callback.
	g.Go(func() error {
		err := index.Watch(gCtx, rt.db, rt.store, cfg.Vault.Path, svc.Config().IndexOptions(), logger, broker.PublishEntityEvent)
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
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
		stopWatcher()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP syncs the index and serves the MCP tools over stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, rt, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.svc.Sync(ctx); err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	rt.logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	return mcpserver.New(rt.svc, rt.store, app.version).ServeStdio()
}

// Sync brings the index up to date with the vault once.
func Sync(ctx context.Context, opts ...Option) error {
	_, rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	start := time.Now()
	if err := rt.svc.Sync(ctx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	_, total, err := rt.svc.List(ctx, "", 1, 0)
	if err != nil {
		return err
	}
	rt.logger.Info("Sync complete",
		slog.Int("entities", total),
		slog.Duration("took", time.Since(start)))
	return nil
}

// ParseDate parses text with the configured locale and timezone, using now as
// the reference for relative expressions. It does not touch the vault.
func ParseDate(cfg *Config, text string, now time.Time) (eventdate.Result, string, error) {
	sc, err := cfg.Entities.ServiceConfig()
	if err != nil {
		return eventdate.Result{}, "", err
	}
	res := eventdate.Parse(text, eventdate.Options{
		ForwardDate: sc.ForwardDate,
		Location:    sc.Location,
		Locale:      sc.Locale,
		Reference:   now,
	})
	return res, res.Display(sc.Locale), nil
}
