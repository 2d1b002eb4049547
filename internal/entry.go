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

	"github.com/starford/helix/internal/api"
	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/calendar/google"
	"github.com/starford/helix/internal/calendar/ics"
	"github.com/starford/helix/internal/mcpserver"
	"github.com/starford/helix/internal/scheduler"
	"github.com/starford/helix/internal/sse"
	"github.com/starford/helix/internal/storage"
	"github.com/starford/helix/internal/store"
	"github.com/starford/helix/internal/tensionservice"
)

// components are the services shared by every entry point.
type components struct {
	db       *store.DB
	files    *ics.Source
	google   *google.Client
	calendar *calendar.Service
	tensions *tensionservice.Service
}

func (c *components) Close() {
	if err := c.db.Close(); err != nil {
		slog.Error("close database", slog.String("error", err.Error()))
	}
}

// setup applies opts and installs the JSON logger as the slog default.
func setup(opts []Option) (*Config, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}
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
	return app.config, logger, nil
}

// build opens the store and assembles the calendar and tension services.
// pub may be nil.
func build(cfg *Config, logger *slog.Logger, pub tensionservice.Publisher) (*components, error) {
	loc := cfg.User.Location()

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	c := &components{db: db}

	var sources calendar.MultiSource
	if cfg.Calendar.ICSDir != "" {
		fs, err := storage.NewFS(cfg.Calendar.ICSDir)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init calendar dir: %w", err)
		}
		c.files = ics.New(fs, loc, logger)
		if err := c.files.Sync(); err != nil {
			logger.Warn("initial calendar sync failed", slog.String("error", err.Error()))
		}
		sources = append(sources, c.files)
	}

	calOpts := []calendar.Option{
		calendar.WithDefaults(cfg.Calendar.Defaults()),
		calendar.WithLogger(logger),
	}
	if cfg.Google.Enabled() {
		c.google = google.New(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL, db,
			google.WithLogger(logger))
		sources = append(sources, c.google)
		calOpts = append(calOpts, calendar.WithWriter(c.google))
	}
	c.calendar = calendar.NewService(sources, loc, calOpts...)

	tensionOpts := []tensionservice.Option{tensionservice.WithLogger(logger)}
	if pub != nil {
		tensionOpts = append(tensionOpts, tensionservice.WithPublisher(pub))
	}
	c.tensions = tensionservice.NewService(db, tensionOpts...)
	return c, nil
}

// Run starts the HTTP server and its background workers with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("ics_dir", cfg.Calendar.ICSDir),
		slog.String("timezone", cfg.User.Timezone),
		slog.Bool("google", cfg.Google.Enabled()),
		slog.String("return_cron", cfg.Scheduler.ReturnCron),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := build(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.Close()

	apiRouter := api.NewRouter(api.Services{
		Calendar: c.calendar,
		Tensions: c.tensions,
		Files:    c.files,
		OAuth:    c.google,
		Notifier: broker,
		Events:   broker,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(r.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
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

	var sched *scheduler.Scheduler
	if cfg.Scheduler.ReturnCron != "" {
		if sched, err = scheduler.New(cfg.Scheduler.ReturnCron, cfg.User.Location(), c.tensions, logger); err != nil {
			return err
		}
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the ICS cache in step with the directory and tell SSE clients.
	if c.files != nil {
		g.Go(func() error {
			if err := ics.Watch(gCtx, c.files, logger, broker.PublishCalendarChange); err != nil {
				logger.Error("calendar watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Automatic returns.
	if sched != nil {
		g.Go(func() error {
			return sched.Run(gCtx)
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

		// SSE streams only end when the broker closes.
		broker.Close()

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

// errShutdown cancels the group so the watcher and scheduler stop with the
// HTTP server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until stdin closes.
func RunMCP(_ context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	c, err := build(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("sqlite_path", cfg.SQLite.Path))
	return mcpserver.New(c.calendar, c.tensions, c.files).ServeStdio()
}

// ReturnOnce runs a single return pass and writes the rendered message to w.
func ReturnOnce(ctx context.Context, w io.Writer, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	c, err := build(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.tensions.Return(ctx)
	if err != nil {
		return fmt.Errorf("return: %w", err)
	}
	_, err = fmt.Fprintln(w, res.Message)
	return err
}
