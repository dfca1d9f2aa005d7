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

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/appstate"
	"github.com/starford/folio/internal/docstore"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
)

// core is the part of the application shared by the HTTP and MCP entry
// points.
type core struct {
	cfg    *Config
	logger *slog.Logger
	docs   *docstore.Store
	app    *appstate.Store
	db     *index.DB // nil when the index is disabled
	// watchPath is the file holding the collection, fs backend only.
	watchPath string
	closers   []func() error
}

func (c *core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func setup(ctx context.Context, opts ...Option) (*core, *application, error) {
	a := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", a.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_key", cfg.Storage.Key),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c := &core{cfg: cfg, logger: logger}
	provider, err := c.openStorage(ctx)
	if err != nil {
		c.Close()
		return nil, nil, err
	}

	c.docs = docstore.New(provider,
		docstore.WithKey(cfg.Storage.Key),
		docstore.WithLogger(logger))
	c.app = appstate.New(c.docs, logger)

	if cfg.Index.Enabled {
		db, err := index.Open(cfg.Index.Path)
		if err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("init index: %w", err)
		}
		c.db = db
		c.closers = append(c.closers, db.Close)
	}

	if err := c.app.Bootstrap(ctx); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	return c, a, nil
}

func (c *core) openStorage(ctx context.Context) (storage.Provider, error) {
	sc := c.cfg.Storage
	switch sc.Backend {
	case BackendFS:
		// Ensure data directory exists.
		if err := os.MkdirAll(sc.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		if c.watchPath, err = fs.Path(sc.Key); err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		return fs, nil
	case BackendSQLite:
		db, err := storage.OpenSQLite(sc.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		return db, nil
	case BackendRedis:
		rc := c.cfg.Redis
		r, err := storage.DialRedis(ctx, rc.Addr, rc.Password, rc.DB, rc.Prefix)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		c.closers = append(c.closers, r.Close)
		return r, nil
	case BackendMemory:
		c.logger.Warn("memory storage: projects are lost on exit")
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	c, _, err := setup(ctx, opts...)
	if err != nil {
		return err
	}
	defer c.Close()
	cfg, logger := c.cfg, c.logger

	broker := sse.NewBroker(cfg.Index.Throttle)
	defer broker.Close()
	c.app.Subscribe(broker.Observe)

	var (
		syncer   *index.Syncer
		searcher api.Searcher
	)
	if c.db != nil {
		syncer = index.NewSyncer(c.db, c.docs, logger)
		syncer.OnSync(func(rep index.Report) {
			stats, err := c.db.Stats(context.Background())
			if err != nil {
				logger.Warn("index stats failed", slog.String("error", err.Error()))
			}
			broker.PublishIndexUpdated(map[string]any{"report": rep, "stats": stats})
		})
		// Run initial sync.
		if _, err := syncer.SyncNow(ctx); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		c.app.Subscribe(func(appstate.State, appstate.Action) { syncer.Trigger() })
		searcher = c.db
	}

	h := api.NewHandler(c.app, c.docs, searcher, logger)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if c.app.State().IsLoading() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"loading"}`))
			return
		}
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

	if syncer != nil {
		g.Go(func() error {
			return syncer.Run(gCtx)
		})
	}

	// Pick up edits made to the data file by other processes.
	if c.watchPath != "" {
		g.Go(func() error {
			err := index.Watch(gCtx, c.watchPath, index.DefaultDebounce, logger, func() {
				c.app.Refresh(gCtx)
			})
			if err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been shut down, so the
// syncer and watcher stop with it.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	c, a, err := setup(ctx, append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcpserver.New(c.app, c.docs, c.db, c.logger, a.version)
	c.logger.Info("MCP server starting on stdio")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
