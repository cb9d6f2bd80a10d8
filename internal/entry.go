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

	"github.com/starford/dysedit/internal/api"
	"github.com/starford/dysedit/internal/assetstore"
	"github.com/starford/dysedit/internal/docservice"
	"github.com/starford/dysedit/internal/document"
	"github.com/starford/dysedit/internal/index"
	"github.com/starford/dysedit/internal/mcpserver"
	"github.com/starford/dysedit/internal/session"
	"github.com/starford/dysedit/internal/settings"
	"github.com/starford/dysedit/internal/sse"
	"github.com/starford/dysedit/internal/storage"
	"github.com/starford/dysedit/internal/surface"
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

	// stdout carries the MCP protocol in mcp mode.
	var logOut io.Writer = os.Stdout
	if app.mode == modeMCP {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("assets_path", cfg.SQLite.Assets),
		slog.String("push_policy", cfg.Editor.PushPolicy),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	assets, err := assetstore.Open(cfg.SQLite.Assets)
	if err != nil {
		return fmt.Errorf("init asset store: %w", err)
	}
	defer assets.Close()

	sess := session.New(assets, store,
		session.WithConfig(cfg.Editor.Session()),
		session.WithLogger(logger))
	if err := sess.Load(ctx); err != nil {
		logger.Warn("restore session failed", slog.String("error", err.Error()))
	}

	theme, err := settings.Load(ctx, assets)
	if err != nil {
		logger.Warn("load settings failed, using defaults", slog.String("error", err.Error()))
	}
	sess.SetVoice(theme.Voice())

	docs := docservice.NewService(store, db)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	var broker *sse.Broker
	if app.mode == modeServe {
		broker = sse.NewBroker(2*time.Second, sse.WithSessionCoalesce(150*time.Millisecond))
		defer broker.Close()
		sess.Subscribe(func(ch document.Change) {
			broker.PublishSessionEvent("changed", map[string]string{"mode": string(ch.Mode)})
		})
	}

	// Follow the workspace: keep the catalog current and push edits made by
	// other programs into the open document.
	g.Go(func() error {
		err := index.Watch(gCtx, db, store, cfg.Workspace.Path, logger, func(kind, path string) {
			if broker != nil {
				broker.PublishDocumentEvent(kind, path)
			}
			if kind == "deleted" {
				return
			}
			res, err := sess.ExternalChange(gCtx, index.PackageName(path))
			if err != nil {
				logger.Warn("external change failed", slog.String("path", path), slog.String("error", err.Error()))
				return
			}
			if res != surface.PushUnchanged && broker != nil {
				broker.PublishSessionEvent("external", map[string]string{"path": path, "result": string(res)})
			}
		})
		if err != nil {
			logger.Warn("workspace watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	if app.mode == modeMCP {
		g.Go(func() error {
			defer cancel()
			logger.Info("Serving MCP on stdio")
			if err := mcpserver.New(sess, docs).ServeStdio(); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
		return wait(g, logger)
	}

	apiRouter := api.NewRouter(sess, docs, assets, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}
	// Open event streams would otherwise hold Shutdown until its timeout.
	httpServer.RegisterOnShutdown(broker.Close)

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

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
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	return wait(g, logger)
}

func wait(g *errgroup.Group, logger *slog.Logger) error {
	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}
