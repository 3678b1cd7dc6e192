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

	"github.com/starford/waypoint/internal/api"
	"github.com/starford/waypoint/internal/identity"
	"github.com/starford/waypoint/internal/mcpserver"
	"github.com/starford/waypoint/internal/sse"
	"github.com/starford/waypoint/internal/storage"
	"github.com/starford/waypoint/internal/tracker"
)

func newApplication(opts []Option, defaultOut io.Writer) (*application, error) {
	app := &application{logOutput: defaultOut}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// openTracker opens the configured backend and the stores on top of it.
func openTracker(cfg *Config, logger *slog.Logger, opts ...tracker.Option) (storage.Backend, *tracker.Tracker, error) {
	backend, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	opts = append([]tracker.Option{tracker.WithLogger(logger)}, opts...)
	tr, err := tracker.New(backend, cfg.Storage.Limits(), opts...)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("init tracker: %w", err)
	}
	return backend, tr, nil
}

// NewHandler builds the HTTP handler: health checks plus the API under /api.
func NewHandler(cfg *Config, tr *tracker.Tracker, events http.Handler) http.Handler {
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

	r.Mount("/api", api.NewRouter(tr, cfg.Auth.API(), events))
	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.logOutput)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Events.Throttle, cfg.Events.Keepalive, logger)
	defer broker.Close()

	trackerOpts := append([]tracker.Option{tracker.WithNotifier(broker)}, app.trackerOpts...)
	backend, tr, err := openTracker(cfg, logger, trackerOpts...)
	if err != nil {
		return err
	}
	defer backend.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHandler(cfg, tr, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Report record files edited on disk when the FS backend is in use.
	if fsBackend, ok := backend.(*storage.FS); ok {
		g.Go(func() error {
			err := storage.Watch(gCtx, fsBackend, logger, broker.PublishFileChange)
			if err != nil {
				logger.Warn("file watcher stopped", slog.String("error", err.Error()))
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close the broker first so open event streams end and Shutdown can finish.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stop the remaining workers such as the file watcher.
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.logOutput)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	backend, tr, err := openTracker(cfg, logger, app.trackerOpts...)
	if err != nil {
		return err
	}
	defer backend.Close()

	logger.Info("MCP server starting",
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("principal", cfg.MCP.Principal))

	srv := mcpserver.New(tr, identity.New(cfg.MCP.Principal))
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
