package entities

import (
	"entity-sync/core/schema"
	coresync "entity-sync/core/sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
}

// NewFeature creates the entities feature.
func NewFeature(engine *coresync.Engine, registry *schema.Registry, logger *zap.Logger) *Feature {
	return &Feature{handler: NewHandler(NewService(engine, registry, logger))}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "entities"
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
