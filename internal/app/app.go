// Package app wires the configured backends into the core services. Both
// imagepressd and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/imagepress/imagepress/internal/analytics"
	"github.com/imagepress/imagepress/internal/events"
	"github.com/imagepress/imagepress/internal/ingestion"
	"github.com/imagepress/imagepress/internal/platform"
	"github.com/imagepress/imagepress/internal/records"
	"github.com/imagepress/imagepress/internal/retrieval"
	"github.com/imagepress/imagepress/internal/storage"
	"github.com/imagepress/imagepress/pkg/compress"
	"github.com/imagepress/imagepress/pkg/config"
)

// App holds the long-lived handles. They are opened once by New and
// released by Close.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	Store  storage.ArtifactStore
	Repo   records.Repository
	Engine compress.Engine
	Pool   *ingestion.Pool

	Ingestion *ingestion.Service
	Retrieval *retrieval.Service
	Analytics *analytics.Service

	closers []func() error
}

// New opens every backend named by cfg and starts the compression pool.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Store, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, a.Store.Close)

	a.Repo, err = OpenRepository(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Repo.Close)

	a.Engine, err = compress.New(cfg.Compression.Engine, compress.WithMaxPixels(cfg.Compression.MaxPixels))
	if err != nil {
		return nil, fmt.Errorf("compression engine: %w", err)
	}
	if !compress.FullPolicy(a.Engine) {
		log.Warn("compression engine writes baseline JPEG without optimized Huffman tables; build with -tags vips for progressive output",
			zap.String("engine", a.Engine.Name()))
	}
	if a.Engine.Name() == compress.EngineVips {
		a.closers = append(a.closers, func() error { compress.Shutdown(); return nil })
	}

	a.Pool = ingestion.NewPool(a.Engine, cfg.Compression.WorkerCount(), cfg.Compression.QueueSize, cfg.Compression.QueueWait())
	a.Pool.Start()
	a.closers = append(a.closers, func() error { a.Pool.Stop(); return nil })

	opts := []ingestion.Option{ingestion.WithMaxUploadBytes(cfg.Compression.MaxUploadBytes)}
	if cfg.Events.RedisURL != "" {
		pub, err := events.NewRedis(ctx, cfg.Events.RedisURL, cfg.Events.Channel)
		if err != nil {
			return nil, fmt.Errorf("connect events: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, ingestion.WithNotifier(pub))
	}

	a.Ingestion = ingestion.NewService(a.Store, a.Pool, a.Repo, log.Named("ingestion"), opts...)
	a.Retrieval = retrieval.NewService(a.Repo, a.Store, log.Named("retrieval"))
	a.Analytics = analytics.NewService(a.Repo)

	log.Info("app ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("database", cfg.Database.Driver),
		zap.String("engine", a.Pool.Engine().Name()),
		zap.Int("workers", cfg.Compression.WorkerCount()),
		zap.Bool("events", cfg.Events.RedisURL != ""),
	)
	return a, nil
}

// OpenRepository opens the record repository selected by cfg.Driver,
// migrating the Postgres schema first when AutoMigrate is set.
func OpenRepository(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (records.Repository, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return records.NewMemory(), nil
	case config.DriverPostgres, "":
		db, err := platform.OpenDB(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := platform.AutoMigrate(db, log); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return records.NewPostgres(db), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping reports whether the record repository is reachable.
func (a *App) Ping(ctx context.Context) error {
	if p, ok := a.Repo.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases handles in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
