package metrics

import (
	coresync "entity-sync/core/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
}

// NewFeature creates the metrics feature.
func NewFeature(gatherer prometheus.Gatherer, engine *coresync.Engine, path string) *Feature {
	return &Feature{handler: NewHandler(gatherer, engine, path)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "metrics"
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
