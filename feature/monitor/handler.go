package monitor

import (
	"errors"

	"entity-sync/core/logger"
	coremonitor "entity-sync/core/monitor"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the consistency monitor.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the monitor routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/monitor")
	group.Get("/status", h.HandleStatus)
	group.Get("/events", h.HandleEvents)
	group.Post("/check", h.HandleCheck)
	group.Get("/drift", h.HandleDrift)
	group.Get("/snapshots", h.HandleListSnapshots)
	group.Post("/snapshots", h.HandleCreateSnapshot)
	group.Get("/snapshots/:id", h.HandleGetSnapshot)
	group.Delete("/snapshots/:id", h.HandleDeleteSnapshot)
	group.Get("/snapshots/:id/drift", h.HandleSnapshotDrift)
}

// HandleStatus returns the monitor status.
// @Summary Monitor Status
// @Tags monitor
// @Produce json
// @Success 200 {object} StatusView
// @Router /monitor/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// HandleEvents returns recent monitor events.
// @Summary Monitor Events
// @Tags monitor
// @Produce json
// @Success 200 {array} monitor.Event
// @Router /monitor/events [get]
func (h *Handler) HandleEvents(c *fiber.Ctx) error {
	return c.JSON(h.service.Events())
}

// HandleCheck runs an integrity check now.
// @Summary Run Check
// @Description Concurrent requests share one check.
// @Tags monitor
// @Produce json
// @Success 200 {object} integrity.Report
// @Failure 500 {object} map[string]string
// @Router /monitor/check [post]
func (h *Handler) HandleCheck(c *fiber.Ctx) error {
	report, err := h.service.Check(c.UserContext())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleDrift compares the store with the last completed check.
// @Summary Detect Drift
// @Tags monitor
// @Produce json
// @Success 200 {object} monitor.DriftResult
// @Failure 409 {object} map[string]string
// @Router /monitor/drift [get]
func (h *Handler) HandleDrift(c *fiber.Ctx) error {
	result, err := h.service.DetectDrift()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

// HandleListSnapshots lists the retained snapshots.
// @Summary List Snapshots
// @Tags monitor
// @Produce json
// @Success 200 {array} monitor.StateSnapshot
// @Router /monitor/snapshots [get]
func (h *Handler) HandleListSnapshots(c *fiber.Ctx) error {
	return c.JSON(h.service.Snapshots())
}

// HandleCreateSnapshot captures the store.
// @Summary Create Snapshot
// @Tags monitor
// @Produce json
// @Param label query string false "Snapshot label"
// @Success 201 {object} monitor.StateSnapshot
// @Router /monitor/snapshots [post]
func (h *Handler) HandleCreateSnapshot(c *fiber.Ctx) error {
	snap, err := h.service.CreateSnapshot(c.Query("label"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}

// HandleGetSnapshot returns one snapshot.
// @Summary Get Snapshot
// @Tags monitor
// @Produce json
// @Param id path string true "Snapshot id"
// @Param entities query boolean false "Include the captured entities"
// @Success 200 {object} SnapshotView
// @Failure 404 {object} map[string]string
// @Router /monitor/snapshots/{id} [get]
func (h *Handler) HandleGetSnapshot(c *fiber.Ctx) error {
	view, err := h.service.Snapshot(c.Params("id"), c.QueryBool("entities"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

// HandleDeleteSnapshot discards a snapshot.
// @Summary Delete Snapshot
// @Tags monitor
// @Param id path string true "Snapshot id"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /monitor/snapshots/{id} [delete]
func (h *Handler) HandleDeleteSnapshot(c *fiber.Ctx) error {
	if err := h.service.DiscardSnapshot(c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSnapshotDrift diffs the store against a snapshot.
// @Summary Compare With Snapshot
// @Tags monitor
// @Produce json
// @Param id path string true "Snapshot id"
// @Success 200 {object} monitor.DriftResult
// @Failure 404 {object} map[string]string
// @Router /monitor/snapshots/{id}/drift [get]
func (h *Handler) HandleSnapshotDrift(c *fiber.Ctx) error {
	result, err := h.service.CompareWithSnapshot(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, coremonitor.ErrSnapshotNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, coremonitor.ErrNoBaseline):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	logger.WithRayID(h.service.logger, c).Error("Monitor request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
