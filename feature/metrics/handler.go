package metrics

import (
	coresync "entity-sync/core/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the Prometheus scrape endpoint and the health probe.
type Handler struct {
	gatherer prometheus.Gatherer
	engine   *coresync.Engine
	path     string
}

// NewHandler creates a handler exposing gatherer at path.
func NewHandler(gatherer prometheus.Gatherer, engine *coresync.Engine, path string) *Handler {
	if path == "" {
		path = "/metrics"
	}
	return &Handler{gatherer: gatherer, engine: engine, path: path}
}

// RegisterRoutes registers the metrics and health routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get(h.path, adaptor.HTTPHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})))
	app.Get("/health", h.HandleHealth)
}

// HandleHealth reports liveness with the engine's connectivity.
// @Summary Health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	body := fiber.Map{"status": "ok"}
	if h.engine != nil {
		body["online"] = h.engine.Online()
		body["pending_changes"] = h.engine.PendingChanges()
	}
	return c.JSON(body)
}
