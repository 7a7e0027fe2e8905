package integrity

import (
	coreintegrity "entity-sync/core/integrity"
	"entity-sync/core/metrics"
	"entity-sync/core/storage"
	"entity-sync/core/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the integrity feature.
func NewFeature(st *store.Store, checker *coreintegrity.Checker, m *metrics.SyncMetrics, logger *zap.Logger, db *gorm.DB, client storage.Client, bucket, prefix string) *Feature {
	svc := NewService(st, checker, m, logger, db, client, bucket, prefix)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "integrity"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
