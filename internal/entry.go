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

	"github.com/starford/chatnotes/internal/api"
	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/mcpserver"
	"github.com/starford/chatnotes/internal/metrics"
	"github.com/starford/chatnotes/internal/noteservice"
	"github.com/starford/chatnotes/internal/notestore"
	"github.com/starford/chatnotes/internal/render"
	"github.com/starford/chatnotes/internal/sse"
	"github.com/starford/chatnotes/internal/syncer"
	"github.com/starford/chatnotes/internal/watch"
)

var (
	errConfigRequired = errors.New("config is required")
	errSourceRequired = errors.New("source path is required")
)

func newRenderer(cfg *Config) *render.Renderer {
	return render.Default(render.WithRenderInternals(cfg.Sync.RenderInternals))
}

// Sync imports the configured source once, or keeps re-importing on source
// changes when watch mode is on. It returns the summary of the last batch.
func Sync(ctx context.Context, opts ...Option) (syncer.Summary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return syncer.Summary{Status: syncer.StatusFatal}, err
	}
	cfg := app.config
	if app.logger == nil {
		app.logger = cfg.App.NewLogger(os.Stderr)
	}
	if cfg.Source.Path == "" {
		return syncer.Summary{Status: syncer.StatusFatal}, errSourceRequired
	}

	store, closeStore, err := cfg.Destination.OpenStore()
	if err != nil {
		return syncer.Summary{Status: syncer.StatusFatal}, fmt.Errorf("%w: open store: %v", apperr.ErrFatal, err)
	}
	defer closeStore()

	b := app.batch(store)
	sum, err := b.Run(ctx)
	if err != nil || !cfg.Sync.Watch {
		return sum, err
	}

	app.logger.Info("watcher: waiting for source changes", slog.String("source", cfg.Source.Path))
	werr := watch.Watch(ctx, cfg.Source.Path, cfg.Sync.Debounce, app.logger, func(ctx context.Context) {
		next, err := b.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			app.logger.Error("sync: batch failed", slog.String("error", err.Error()))
		}
		sum = next
	})
	if werr != nil && !errors.Is(werr, context.Canceled) {
		return sum, werr
	}
	return sum, nil
}

// ServeMCP serves the note store over MCP on stdin/stdout.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if app.logger == nil {
		// stdout carries the protocol.
		app.logger = cfg.App.NewLogger(os.Stderr)
	}

	store, closeStore, err := cfg.Destination.OpenStore()
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer closeStore()

	svc := noteservice.NewService(store, app.syncFunc(store))
	app.logger.Info("mcp: serving on stdio", slog.String("folder", cfg.Destination.Folder))
	return mcpserver.New(svc, app.version).ServeStdio()
}

func (a *application) syncFunc(store notestore.Store, extra ...syncer.BatchOption) noteservice.SyncFunc {
	if a.config.Source.Path == "" {
		return nil
	}
	b := a.batch(store, extra...)
	return b.Run
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	if app.logger == nil {
		app.logger = cfg.App.NewLogger(os.Stdout)
	}
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", cfg.Source.Path),
		slog.String("backend", cfg.Destination.Backend),
		slog.String("destination", cfg.Destination.Path),
		slog.String("folder", cfg.Destination.Folder),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, closeStore, err := cfg.Destination.OpenStore()
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer closeStore()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	collector := metrics.New()
	svc := noteservice.NewService(store, app.syncFunc(store,
		syncer.WithObserver(sse.NewObserver(broker)),
		syncer.WithObserver(collector),
	))
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker,
		api.WithSyncRateLimit(cfg.App.HTTP.SyncRPS, cfg.App.HTTP.SyncBurst))

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

	if cfg.App.HTTP.Metrics {
		r.Handle("/metrics", collector.Handler())
	}

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Source.Path != "" {
		runSync := func(ctx context.Context) {
			sum, err := svc.SyncNow(ctx)
			switch {
			case errors.Is(err, apperr.ErrConflict):
				logger.Debug("sync: already running")
			case err != nil && ctx.Err() == nil:
				logger.Warn("sync failed", slog.String("error", err.Error()))
			case err == nil:
				logger.Debug("sync: finished", slog.String("status", sum.Status.String()))
			}
		}

		// Initial import.
		g.Go(func() error {
			runSync(gCtx)
			return nil
		})

		if cfg.Sync.Watch {
			g.Go(func() error {
				err := watch.Watch(gCtx, cfg.Source.Path, cfg.Sync.Debounce, logger, runSync)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("watcher stopped", slog.String("error", err.Error()))
				}
				return nil
			})
		}
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
