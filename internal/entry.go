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

	"github.com/starford/sowilo/internal/api"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/journal"
	"github.com/starford/sowilo/internal/mcpserver"
	"github.com/starford/sowilo/internal/mirror"
	"github.com/starford/sowilo/internal/noteservice"
	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/trash"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger on stderr: stdout belongs to the
	// MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("skills_root", cfg.Skills.Root),
		slog.String("user_root", cfg.Skills.UserRoot),
		slog.String("trash_root", cfg.Trash.Root),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the skill roots exist.
	if err := os.MkdirAll(cfg.Skills.Root, 0o755); err != nil {
		return fmt.Errorf("create skills root: %w", err)
	}
	if cfg.Skills.UserRoot != "" {
		if err := os.MkdirAll(cfg.Skills.UserRoot, 0o755); err != nil {
			return fmt.Errorf("create user skills root: %w", err)
		}
	}

	// Build the engine.
	cat := catalog.New(cfg.Skills.Root, cfg.Skills.UserRoot)
	store := storage.NewFS(cfg.Skills.UserRoot)
	notes := noteservice.New(store)
	jw := journal.New(cfg.Journal.Path)
	bin := trash.New(cfg.Trash.Root, jw, store)

	// Best-effort one-shot mirror sync; the engine works whether or not it
	// ever completes.
	mirror.Start(ctx, cfg.Skills.Root, mirror.Config{
		URL:    cfg.Mirror.URL,
		Branch: cfg.Mirror.Branch,
	}, logger)

	mcpSrv := mcpserver.New(cat, store, notes, bin, cfg.Read.MaxBytes)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Serve MCP tools on stdio. Returns when stdin closes, which also ends
	// the run loop.
	g.Go(func() error {
		defer cancel()
		logger.Info("Serving MCP on stdio")
		if err := mcpSrv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	// Optional read-only HTTP catalog API.
	var httpServer *http.Server
	if cfg.App.HTTP.Enabled {
		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
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

		r.Mount("/api", api.NewRouter(cat, store, notes, cfg.Auth.AuthEnabled(), cfg.Auth.Token))

		httpServer = &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: r,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

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

		if httpServer != nil {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
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
