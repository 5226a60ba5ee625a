// Package control wires configuration, storage, the failure handler chain
// and the HTTP server into a running service.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/crashguard/internal/core/config"
	"github.com/vietddude/crashguard/internal/core/worker"
	"github.com/vietddude/crashguard/internal/debug"
	"github.com/vietddude/crashguard/internal/debug/handlers"
	"github.com/vietddude/crashguard/internal/debug/hook"
	"github.com/vietddude/crashguard/internal/debug/output"
	redisclient "github.com/vietddude/crashguard/internal/infra/redis"
	"github.com/vietddude/crashguard/internal/infra/storage"
	"github.com/vietddude/crashguard/internal/infra/storage/memory"
	"github.com/vietddude/crashguard/internal/infra/storage/postgres"
	"github.com/vietddude/crashguard/internal/server"
)

const shutdownTimeout = 15 * time.Second

// Store is an opened report journal.
type Store struct {
	Reports storage.ReportRepository
	Backend string
	// Check pings the backing service; nil for in-process backends.
	Check server.HealthCheck

	db          *postgres.DB
	redisClient *redisclient.Client
}

// OpenStore connects the report journal selected by cfg.Reports.Backend.
func OpenStore(ctx context.Context, cfg *config.AppConfig) (*Store, error) {
	s := &Store{Backend: cfg.Reports.Backend}

	switch cfg.Reports.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.db = db
		s.Reports = storage.WithRetry(postgres.NewReportRepo(db), storage.DefaultRetryConfig)
		s.Check = db.Health
		slog.Info("Using PostgreSQL report storage")

	case config.BackendRedis:
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		s.redisClient = client
		s.Reports = storage.WithRetry(
			redisclient.NewReportRepo(client, cfg.Redis.Namespace, cfg.Reports.TTL, cfg.Reports.Limit),
			storage.DefaultRetryConfig,
		)
		s.Check = client.Health
		slog.Info("Using Redis report storage", "namespace", cfg.Redis.Namespace)

	case config.BackendMemory, "":
		s.Backend = config.BackendMemory
		s.Reports = memory.NewReportRepo(cfg.Reports.Limit)
		slog.Info("Using Memory report storage")

	default:
		return nil, fmt.Errorf("unknown reports backend %q", cfg.Reports.Backend)
	}
	return s, nil
}

// Close releases the backing connection.
func (s *Store) Close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.redisClient != nil {
		errs = append(errs, s.redisClient.Close())
	}
	return errors.Join(errs...)
}

// App is the running crashguard service.
type App struct {
	cfg     *config.AppConfig
	process *hook.Process
	debug   *debug.Debug
	store   *Store
	server  *server.Server
	log     *slog.Logger
}

// NewApp builds the service. The process-level Debug is registered into
// proc, so failures outside requests go through the same handlers.
func NewApp(ctx context.Context, cfg *config.AppConfig, proc *hook.Process) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := handlers.NewDefaultRegistry(handlers.Dependencies{
		Config:        cfg.ErrorHandling.Config,
		Logger:        handlers.NewSlogLogger(nil),
		Reports:       store.Reports,
		ReportBackend: store.Backend,
		ReportTimeout: cfg.ErrorHandling.ReportTimeout,
	})

	d := debug.New(proc,
		debug.WithRegistry(registry),
		debug.WithOutput(output.New(os.Stderr)),
	)
	for _, name := range cfg.ErrorHandling.Handlers {
		if err := d.Append(name); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to build handler %q: %w", name, err)
		}
	}

	opts := []server.Option{server.WithReports(store.Reports)}
	if store.Check != nil {
		opts = append(opts, server.WithHealthCheck(store.Backend, store.Check))
	}
	srv, err := server.New(server.Config{
		Port:       cfg.Server.Port,
		Handlers:   cfg.ErrorHandling.Handlers,
		Production: cfg.Production(),
	}, proc, registry, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	d.Register()

	return &App{
		cfg:     cfg,
		process: proc,
		debug:   d,
		store:   store,
		server:  srv,
		log:     slog.Default(),
	}, nil
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// Run serves until ctx is done, then stops the server and closes storage.
func (a *App) Run(ctx context.Context) error {
	if a.store.db != nil {
		a.store.db.StartMetricsCollector(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Start)
	g.Go(func() error {
		worker.NewPruner(a.cfg.Reports.Retention, a.store.Reports).Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Stopping crashguard...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Stop(shutdownCtx)
	})

	err := g.Wait()
	if cerr := a.store.Close(); cerr != nil {
		a.log.Warn("Failed to close report storage", "error", cerr)
	}
	return err
}
