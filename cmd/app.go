package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"entity-sync/core/config"
	"entity-sync/core/database"
	"entity-sync/core/integrity"
	"entity-sync/core/logger"
	"entity-sync/core/metrics"
	"entity-sync/core/monitor"
	"entity-sync/core/reconcile"
	"entity-sync/core/schema"
	"entity-sync/core/source"
	"entity-sync/core/source/dbsource"
	"entity-sync/core/source/httpsource"
	"entity-sync/core/source/memsource"
	"entity-sync/core/source/objectsource"
	"entity-sync/core/storage"
	"entity-sync/core/store"
	"entity-sync/core/sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the components shared by the server and the CLI commands.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *schema.Registry

	DB      *gorm.DB
	Storage storage.Client

	Sources []source.Source
	Store   *store.Store
	Engine  *sync.Engine
	Checker *integrity.Checker
	Monitor *monitor.Monitor

	Metrics    *metrics.SyncMetrics
	Prometheus *prometheus.Registry
}

// bootstrap loads configuration and wires every component. Backends not
// named in the sources configuration are left nil.
func bootstrap(ctx context.Context, path string) (*App, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry, err := schema.LoadFile(cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	app := &App{
		Config:     cfg,
		Logger:     logg,
		Registry:   registry,
		Prometheus: prometheus.NewRegistry(),
	}
	app.Prometheus.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if app.Metrics, err = metrics.NewSyncMetrics(app.Prometheus); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	fields := source.Fields{
		Version:   cfg.Sync.VersionField,
		Timestamp: cfg.Sync.TimestampField,
	}.WithDefaults()

	for _, name := range cfg.Sources.Backends() {
		src, err := app.openSource(ctx, name, fields)
		if err != nil {
			return nil, err
		}
		app.Sources = append(app.Sources, src)
	}
	if len(app.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	if cfg.Storage.Enabled && app.Storage == nil {
		// Storage checks still run when the bucket is not a sync source.
		if app.Storage, err = storage.NewClient(cfg.Storage); err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
	}

	app.Store = store.New(nil, logg)
	app.Engine, err = sync.New(app.Store, registry, cfg.Sync,
		sync.WithSources(app.Sources[0], app.Sources[1:]...),
		sync.WithMetrics(app.Metrics),
		sync.WithLogger(logg),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync engine: %w", err)
	}

	app.Checker = integrity.NewChecker(registry, integrity.WithLogger(logg))
	app.Monitor = monitor.New(app.Checker,
		monitor.WithMetrics(app.Metrics),
		monitor.WithLogger(logg),
	)
	return app, nil
}

func (a *App) openSource(ctx context.Context, name string, fields source.Fields) (source.Source, error) {
	cfg := a.Config
	switch name {
	case source.BackendMemory:
		return memsource.New(name, memsource.WithFields(fields)), nil

	case source.BackendDatabase:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = db
		src := dbsource.New(name, db, dbsource.WithFields(fields))
		if err := src.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate entity table: %w", err)
		}
		a.Logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
		return src, nil

	case source.BackendStorage:
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}
		a.Storage = client
		return objectsource.New(name, client, cfg.Storage.Bucket,
			objectsource.WithPrefix(cfg.Storage.Prefix),
			objectsource.WithFields(fields),
		), nil

	case source.BackendHTTP:
		if cfg.Sources.HTTPBaseURL == "" {
			return nil, fmt.Errorf("http source needs sources.http_base_url")
		}
		client := &http.Client{Timeout: time.Duration(cfg.Sources.HTTPTimeoutSeconds) * time.Second}
		return httpsource.New(name, cfg.Sources.HTTPBaseURL,
			httpsource.WithClient(client),
			httpsource.WithFields(fields),
		), nil
	}
	return nil, fmt.Errorf("unknown source backend %q", name)
}

// Reconciler compares the configured mirrors with the primary.
func (a *App) Reconciler() (*reconcile.Reconciler, error) {
	return reconcile.New(a.Sources[0], a.Sources[1:],
		reconcile.WithFields(source.Fields{
			Version:   a.Config.Sync.VersionField,
			Timestamp: a.Config.Sync.TimestampField,
		}),
		reconcile.WithCacheTTL(a.Config.Sources.ReconcileCacheTTL),
		reconcile.WithLogger(a.Logger),
	)
}

// Close releases the database connection.
func (a *App) Close() {
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.Logger.Sync()
}
