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
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/mkarlsen/keepsake/internal/api"
	"github.com/mkarlsen/keepsake/internal/captioner"
	"github.com/mkarlsen/keepsake/internal/gate"
	"github.com/mkarlsen/keepsake/internal/journal"
	"github.com/mkarlsen/keepsake/internal/mcpserver"
	"github.com/mkarlsen/keepsake/internal/sse"
	"github.com/mkarlsen/keepsake/internal/store"
	pkgconfig "github.com/mkarlsen/keepsake/pkg/config"
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

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the record store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// One-time migration of the legacy flat-list export, if present.
	if n, err := store.MigrateLegacy(db, logger); err != nil {
		logger.Warn("legacy migration failed, keeping legacy data",
			slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("legacy migration complete", slog.Int("records", n))
	}

	// Persisted remote settings win over the config file defaults: the
	// settings screen writes to the store, not to disk.
	remote := cfg.Remote
	if stored, err := db.RemoteSettings(); err != nil {
		logger.Warn("read remote settings failed", slog.String("error", err.Error()))
	} else if stored != nil {
		remote = *stored
	}

	g := gate.New(remote, cfg.App.HTTP.CallbackURL(), logger)

	var captions journal.Captioner
	if c, err := captioner.New(cfg.Caption.APIKey, captioner.WithModel(cfg.Caption.Model)); err != nil {
		logger.Warn("captioner init failed, suggestions disabled", slog.String("error", err.Error()))
	} else if c != nil {
		captions = c
	}

	// SSE broker for save and sync notifications.
	broker := sse.NewBroker()
	defer broker.Close()

	svc := journal.NewService(db, g, captions, broker, logger)

	if app.mcpStdio {
		logger.Info("Starting MCP stdio server")
		return mcpserver.New(svc).ServeStdio()
	}

	apiRouter := api.NewRouter(svc, g, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP), logger)

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

	eg, gCtx := errgroup.WithContext(ctx)

	// Watch the config file: remote settings edits on disk reset the gate.
	if app.configPath != "" {
		eg.Go(func() error {
			watchConfig(gCtx, app.configPath, g, logger)
			return nil
		})
	}

	// Start HTTP server.
	eg.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	eg.Go(func() error {
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

	if err := eg.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// watchConfig watches the config file and resets the access gate when the
// remote section changes on disk. Editors replace files on save, so the
// watch is on the parent directory with a short debounce.
func watchConfig(ctx context.Context, path string, g *gate.Gate, logger *slog.Logger) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watcher init failed", slog.String("error", err.Error()))
		return
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		logger.Warn("config watcher add failed", slog.String("error", err.Error()))
		return
	}

	logger.Info("config watcher: started", slog.String("path", path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("config watcher: stopped")
			return

		case <-reloadCh:
			cfg := NewDefaultConfig()
			if err := pkgconfig.Load(path, cfg); err != nil {
				logger.Warn("config reload failed", slog.String("error", err.Error()))
				continue
			}
			if cfg.Remote == g.Settings() {
				continue
			}
			logger.Info("remote settings changed on disk, resetting session")
			g.Reset(cfg.Remote)

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Error("config watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
