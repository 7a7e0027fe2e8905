package monitor

import (
	coremonitor "entity-sync/core/monitor"
	"entity-sync/core/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the monitor feature.
func NewFeature(st *store.Store, m *coremonitor.Monitor, logger *zap.Logger) *Feature {
	svc := NewService(st, m, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "monitor"
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

// Close stops the feature's event recording.
func (f *Feature) Close() {
	f.service.Close()
}
