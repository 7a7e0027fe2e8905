package integrity

import (
	"errors"

	"entity-sync/core/integrity"
	"entity-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleCheck)
	group.Get("/entities/:type/:id", h.HandleCheckEntity)
	group.Post("/repair", h.HandleRepair)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/database", h.HandleDatabaseCheck)
}

// HandleCheck validates the whole store.
// @Summary Check Store Integrity
// @Description Validates every entity against the relation graph and declared constraints.
// @Tags integrity
// @Produce json
// @Success 200 {object} integrity.Report
// @Router /integrity [get]
func (h *Handler) HandleCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	report := h.service.Check()
	l.Info("Integrity check completed",
		zap.Bool("valid", report.Valid),
		zap.Int("violations", report.Summary.Total))
	return c.JSON(report)
}

// HandleCheckEntity validates one entity.
// @Summary Check Entity Integrity
// @Tags integrity
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /integrity/entities/{type}/{id} [get]
func (h *Handler) HandleCheckEntity(c *fiber.Ctx) error {
	entityType, id := c.Params("type"), c.Params("id")
	violations, ok := h.service.CheckEntity(entityType, id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "entity not found"})
	}
	return c.JSON(fiber.Map{
		"entity_type": entityType,
		"entity_id":   id,
		"valid":       len(violations) == 0,
		"violations":  violations,
	})
}

// HandleRepair repairs the store.
// @Summary Repair Store
// @Description Plans and applies one repair per violation. Unrepairable violations are returned in remaining.
// @Tags integrity
// @Produce json
// @Param errors_only query boolean false "Only repair error-severity violations"
// @Param dry_run query boolean false "Plan without applying"
// @Success 200 {object} RepairOutcome
// @Router /integrity/repair [post]
func (h *Handler) HandleRepair(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	opts := integrity.RepairOptions{ErrorsOnly: c.QueryBool("errors_only")}
	dryRun := c.QueryBool("dry_run")

	out, err := h.service.Repair(opts, dryRun)
	if err != nil {
		l.Error("Repair failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(out)
}

// HandleStorageCheck checks and optionally fixes the object store layout.
// @Summary Check Storage Layout
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Create missing type folders"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /integrity/storage [get]
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckStorage(c.Context())
	if err != nil {
		return h.backendError(c, l, "Storage check failed", err)
	}

	if len(report.Missing) > 0 {
		l.Warn("Missing type folders detected", zap.Strings("missing", report.Missing))

		if fix {
			if err := h.service.FixStorage(c.Context(), report.Missing); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to fix storage",
					"details": err.Error(),
					"missing": report.Missing,
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"fixed":  report.Missing,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status":  "checked",
		"missing": report.Missing,
	})
}

// HandleDatabaseCheck checks and optionally migrates the entity table.
// @Summary Check Database Table
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Migrate the table"
// @Success 200 {object} database.TableReport
// @Failure 500 {object} map[string]string
// @Router /integrity/database [get]
func (h *Handler) HandleDatabaseCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckDatabase()
	if err != nil {
		return h.backendError(c, l, "Database check failed", err)
	}
	if !report.OK() && c.Query("fix") == "true" {
		l.Info("Migrating entity table", zap.Strings("missing", report.Missing))
		if err := h.service.FixDatabase(c.Context()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if report, err = h.service.CheckDatabase(); err != nil {
			return h.backendError(c, l, "Database check failed", err)
		}
	}
	return c.JSON(report)
}

func (h *Handler) backendError(c *fiber.Ctx, l *zap.Logger, msg string, err error) error {
	if errors.Is(err, ErrBackendDisabled) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	l.Error(msg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
