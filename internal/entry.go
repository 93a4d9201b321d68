// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/liblearn/internal/api"
	"github.com/starford/liblearn/internal/batch"
	"github.com/starford/liblearn/internal/deck"
	"github.com/starford/liblearn/internal/deckservice"
	"github.com/starford/liblearn/internal/introspect"
	"github.com/starford/liblearn/internal/introspect/gopkg"
	"github.com/starford/liblearn/internal/introspect/metafile"
	"github.com/starford/liblearn/internal/introspect/pysrc"
	"github.com/starford/liblearn/internal/logging"
	"github.com/starford/liblearn/internal/report"
	"github.com/starford/liblearn/internal/sse"
	"github.com/starford/liblearn/internal/storage"
	"github.com/starford/liblearn/internal/watch"
)

// Version is reported by the MCP server.
var Version = "dev"

// App holds the wired components shared by every command.
type App struct {
	config *Config
	logger *slog.Logger
	rng    *rand.Rand
	stdin  io.Reader
	stdout io.Writer

	provider introspect.Provider
	builder  *deck.Builder
	service  *deckservice.Service
	db       *report.DB

	closers []func() error
}

// New validates the configuration and wires the application.
func New(opts ...Option) (*App, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		config: cfg,
		logger: app.logger,
		rng:    app.rng,
		stdin:  app.stdin,
		stdout: app.stdout,
	}
	if a.stdin == nil {
		a.stdin = os.Stdin
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if a.logger == nil {
		logger, closeLog, err := logging.Setup(logging.Options{
			Level:     cfg.App.LogLevel,
			Dir:       cfg.App.LogDir,
			Retention: cfg.App.LogRetention,
		})
		if err != nil {
			return nil, fmt.Errorf("init logging: %w", err)
		}
		a.logger = logger
		a.closers = append(a.closers, closeLog)
	}
	slog.SetDefault(a.logger)

	a.logger.Debug("Configuration loaded",
		slog.String("source", cfg.Source.Kind),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.String("sqlite_path", cfg.Report.SQLitePath))

	provider, err := newProvider(cfg.Source, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.provider = provider

	if app.reports {
		db, err := report.Open(cfg.Report.SQLitePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init report db: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
	}

	a.builder = deck.NewBuilder(provider, a.child(), logging.Named(a.logger, "deck"))
	runner := batch.NewRunner(a.builder, cfg.App.Workers, logging.Named(a.logger, "batch"))
	a.service = deckservice.NewService(a.builder, runner, a.db, cfg.Source.Kind, a.child(), logging.Named(a.logger, "deckservice"))
	return a, nil
}

// Close releases the report database and the log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Service returns the deck service.
func (a *App) Service() *deckservice.Service { return a.service }

func (a *App) child() *rand.Rand {
	return rand.New(rand.NewPCG(a.rng.Uint64(), a.rng.Uint64()))
}

func newProvider(cfg SourceConfig, logger *slog.Logger) (introspect.Provider, error) {
	switch cfg.Kind {
	case SourceGo:
		return gopkg.New(cfg.GoDir, logging.Named(logger, "gopkg")), nil
	case SourcePython:
		return pysrc.New(cfg.PythonPaths, logging.Named(logger, "pysrc")), nil
	case SourceMeta:
		store, err := storage.NewFS(cfg.MetaDir)
		if err != nil {
			return nil, fmt.Errorf("init metadata store: %w", err)
		}
		return metafile.New(store, logging.Named(logger, "metafile")), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// watchOptions returns the directories and extensions that feed the provider.
func watchOptions(cfg SourceConfig) watch.Options {
	switch cfg.Kind {
	case SourcePython:
		return watch.Options{Roots: cfg.PythonPaths, Exts: []string{".py"}}
	case SourceMeta:
		return watch.Options{Roots: []string{cfg.MetaDir}, Exts: metafile.Extensions}
	default:
		dir := cfg.GoDir
		if dir == "" {
			dir = "."
		}
		return watch.Options{Roots: []string{dir}, Exts: []string{".go"}}
	}
}

// Run wires the application and serves the HTTP API until ctx is cancelled
// or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	a, err := New(append(opts, WithReports())...)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Serve(ctx)
}

// Serve runs the HTTP API, the SSE broker and the source watcher.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.config
	logger := a.logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(a.service, cfg.Deck.Options(), cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		Addr:    cfg.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Source changes drop cached decks and notify SSE clients.
	g.Go(func() error {
		err := watch.Watch(gCtx, watchOptions(cfg.Source), logging.Named(logger, "watch"), func(changes []watch.Change) {
			a.service.Invalidate()
			for _, c := range changes {
				broker.PublishChange(c.Op, c.File)
			}
		})
		if err != nil {
			logger.Warn("watcher disabled", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
