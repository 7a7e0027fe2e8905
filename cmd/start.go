package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"entity-sync/core/loader"
	"entity-sync/core/logger"
	"entity-sync/core/middleware/auth"
	"entity-sync/core/middleware/rayid"
	"entity-sync/feature/entities"
	"entity-sync/feature/integrity"
	"entity-sync/feature/metrics"
	"entity-sync/feature/monitor"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "entity-sync/docs/swagger"
)

// @title Entity Sync API
// @version 1.0
// @description Normalized entity store with multi-source sync, conflict resolution and integrity monitoring.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

var initialSync bool

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the entity sync server",
	Long:  `Starts the HTTP server, the sync engine and, when enabled, the consistency monitor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx, ".")
		if err != nil {
			return err
		}
		defer a.Close()
		logg := a.Logger
		zap.ReplaceGlobals(logg)
		cfg := a.Config

		if initialSync {
			for _, t := range a.Registry.Keys() {
				if _, err := a.Engine.Sync(ctx, t, syncOptions()); err != nil {
					logg.Warn("Initial sync failed", zap.String("entity_type", t), zap.Error(err))
				}
			}
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		monitorFeature := monitor.NewFeature(a.Store, a.Monitor, logg)
		defer monitorFeature.Close()

		mgr := loader.NewManager(logg)
		mgr.Register(
			metrics.NewFeature(a.Prometheus, a.Engine, cfg.Server.MetricsPath),
			entities.NewFeature(a.Engine, a.Registry, logg),
			integrity.NewFeature(a.Store, a.Checker, a.Metrics, logg, a.DB, a.Storage, cfg.Storage.Bucket, cfg.Storage.Prefix),
			monitorFeature,
		)

		// RayID first so every log line carries it.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger stays reachable without a key.
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Public: cfg.Server.Public()}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		if cfg.Monitor.Enabled {
			if err := a.Monitor.Start(ctx, cfg.Monitor.Interval, a.Store.Snapshot); err != nil {
				return err
			}
			defer a.Monitor.Stop()
			logg.Info("Consistency monitor started", zap.Duration("interval", cfg.Monitor.Interval))
		}

		errc := make(chan error, 1)
		go func() {
			logg.Info("Starting server", zap.String("addr", cfg.Server.Addr()))
			errc <- app.Listen(cfg.Server.Addr())
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		logg.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	startCmd.Flags().BoolVar(&initialSync, "sync", false, "Sync every entity type before serving")
	RootCmd.AddCommand(startCmd)
}
