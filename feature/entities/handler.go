package entities

import (
	"errors"
	"strings"

	"entity-sync/core/conflict"
	"entity-sync/core/logger"
	"entity-sync/core/normalize"
	"entity-sync/core/schema"
	"entity-sync/core/source"
	coresync "entity-sync/core/sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for entities, sync and conflicts.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the entity, sync and conflict routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	ents := app.Group("/entities")
	ents.Get("/", h.HandleTypes)
	ents.Get("/:type", h.HandleList)
	ents.Post("/:type", h.HandleCreate)
	ents.Post("/:type/normalize", h.HandleNormalize)
	ents.Get("/:type/:id", h.HandleGet)
	ents.Put("/:type/:id", h.HandleCreate)
	ents.Patch("/:type/:id", h.HandleUpdate)
	ents.Delete("/:type/:id", h.HandleDelete)

	sync := app.Group("/sync")
	sync.Get("/status", h.HandleStatuses)
	sync.Get("/status/:type", h.HandleStatus)
	sync.Post("/online", h.HandleOnline)
	sync.Post("/offline", h.HandleOffline)
	sync.Post("/retry", h.HandleRetry)
	sync.Get("/queue", h.HandleQueue)
	sync.Get("/failed", h.HandleFailed)
	sync.Get("/transactions", h.HandleTransactions)
	sync.Post("/", h.HandleSyncAll)
	sync.Post("/:type", h.HandleSync)

	conflicts := app.Group("/conflicts")
	conflicts.Get("/", h.HandleConflicts)
	conflicts.Get("/:id", h.HandleConflict)
	conflicts.Post("/:id/resolve", h.HandleResolve)
}

func readOptions(c *fiber.Ctx) ReadOptions {
	return ReadOptions{
		Normalized: c.QueryBool("normalized"),
		Depth:      c.QueryInt("depth", 0),
	}
}

// HandleTypes lists the registered entity types.
// @Summary List Entity Types
// @Tags entities
// @Produce json
// @Success 200 {array} TypeSummary
// @Router /entities [get]
func (h *Handler) HandleTypes(c *fiber.Ctx) error {
	return c.JSON(h.service.Types())
}

// HandleList returns every entity of a type.
// @Summary List Entities
// @Tags entities
// @Produce json
// @Param type path string true "Entity type"
// @Param depth query int false "Maximum nesting depth, 0 for unlimited"
// @Param normalized query boolean false "Return stored records"
// @Success 200 {array} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /entities/{type} [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	items, err := h.service.List(c.Params("type"), readOptions(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

// HandleGet returns one entity.
// @Summary Get Entity
// @Tags entities
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity id"
// @Param depth query int false "Maximum nesting depth, 0 for unlimited"
// @Param normalized query boolean false "Return the stored record"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /entities/{type}/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	value, ok, err := h.service.Get(c.Params("type"), c.Params("id"), readOptions(c))
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "entity not found"})
	}
	return c.JSON(value)
}

// HandleNormalize previews the normalized form of a payload.
// @Summary Normalize Payload
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Success 200 {object} normalize.Result
// @Failure 400 {object} map[string]string
// @Router /entities/{type}/normalize [post]
func (h *Handler) HandleNormalize(c *fiber.Ctx) error {
	var payload any
	if err := c.BodyParser(&payload); err != nil {
		return h.fail(c, badRequest(err))
	}
	res, err := h.service.Normalize(c.Params("type"), payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleCreate creates an entity optimistically and pushes it.
// @Summary Create Entity
// @Description Applied locally first; rolled back when the primary source rejects it. Queued while offline.
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /entities/{type} [post]
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	payload, err := bodyMap(c)
	if err != nil {
		return h.fail(c, err)
	}
	created, err := h.service.Create(c.UserContext(), c.Params("type"), c.Params("id"), payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleUpdate merges the body onto an entity.
// @Summary Update Entity
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity id"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /entities/{type}/{id} [patch]
func (h *Handler) HandleUpdate(c *fiber.Ctx) error {
	payload, err := bodyMap(c)
	if err != nil {
		return h.fail(c, err)
	}
	updated, err := h.service.Update(c.UserContext(), c.Params("type"), c.Params("id"), payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(updated)
}

// HandleDelete removes an entity.
// @Summary Delete Entity
// @Tags entities
// @Param type path string true "Entity type"
// @Param id path string true "Entity id"
// @Success 204
// @Router /entities/{type}/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("type"), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSync refreshes one type from the sources. Query parameters other
// than prune are passed to the sources as filters.
// @Summary Sync Entity Type
// @Tags sync
// @Produce json
// @Param type path string true "Entity type"
// @Param prune query boolean false "Remove entities the primary no longer holds"
// @Success 200 {object} sync.SyncResult
// @Router /sync/{type} [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	res, err := h.service.Sync(c.UserContext(), c.Params("type"), syncOptions(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleSyncAll syncs every registered type.
// @Summary Sync All Types
// @Tags sync
// @Produce json
// @Success 200 {array} sync.SyncResult
// @Router /sync [post]
func (h *Handler) HandleSyncAll(c *fiber.Ctx) error {
	res, err := h.service.SyncAll(c.UserContext(), syncOptions(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func syncOptions(c *fiber.Ctx) coresync.SyncOptions {
	opts := coresync.SyncOptions{Prune: c.QueryBool("prune")}
	for k, v := range c.Queries() {
		if k == "prune" {
			continue
		}
		if opts.Params == nil {
			opts.Params = map[string]string{}
		}
		opts.Params[k] = v
	}
	return opts
}

// HandleStatuses returns the sync status of every known type.
// @Summary Sync Status
// @Tags sync
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /sync/status [get]
func (h *Handler) HandleStatuses(c *fiber.Ctx) error {
	e := h.service.Engine()
	return c.JSON(fiber.Map{
		"online":          e.Online(),
		"pending_changes": e.PendingChanges(),
		"conflicts":       len(e.Conflicts()),
		"types":           e.Statuses(),
	})
}

// HandleStatus returns the sync status of one type.
// @Summary Type Sync Status
// @Tags sync
// @Produce json
// @Param type path string true "Entity type"
// @Success 200 {object} sync.Status
// @Router /sync/status/{type} [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	entityType := c.Params("type")
	if _, err := h.service.registry.Lookup(entityType); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.service.Engine().Status(entityType))
}

// HandleOnline marks the engine online and replays the offline queue.
// @Summary Go Online
// @Tags sync
// @Produce json
// @Success 200 {object} sync.ReplayResult
// @Router /sync/online [post]
func (h *Handler) HandleOnline(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	res, err := h.service.Engine().SetOnline(c.UserContext(), true)
	if err != nil {
		l.Warn("Replay stopped", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error(), "replay": res})
	}
	l.Info("Engine online", zap.Int("replayed", res.Replayed))
	return c.JSON(res)
}

// HandleOffline marks the engine offline.
// @Summary Go Offline
// @Tags sync
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /sync/offline [post]
func (h *Handler) HandleOffline(c *fiber.Ctx) error {
	if _, err := h.service.Engine().SetOnline(c.UserContext(), false); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"online": false})
}

// HandleRetry retries failed operations.
// @Summary Retry Failed Operations
// @Tags sync
// @Produce json
// @Success 200 {object} sync.RetryResult
// @Failure 503 {object} map[string]string
// @Router /sync/retry [post]
func (h *Handler) HandleRetry(c *fiber.Ctx) error {
	res, err := h.service.Engine().RetryFailed(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleQueue lists queued operations.
// @Summary Offline Queue
// @Tags sync
// @Produce json
// @Success 200 {array} sync.Operation
// @Router /sync/queue [get]
func (h *Handler) HandleQueue(c *fiber.Ctx) error {
	return c.JSON(h.service.Engine().Queue())
}

// HandleFailed lists permanently failed operations.
// @Summary Failed Operations
// @Tags sync
// @Produce json
// @Success 200 {array} sync.Operation
// @Router /sync/failed [get]
func (h *Handler) HandleFailed(c *fiber.Ctx) error {
	return c.JSON(h.service.Engine().FailedOperations())
}

// HandleTransactions lists recent local transactions.
// @Summary Transaction Log
// @Tags sync
// @Produce json
// @Success 200 {array} sync.Transaction
// @Router /sync/transactions [get]
func (h *Handler) HandleTransactions(c *fiber.Ctx) error {
	return c.JSON(h.service.Engine().Transactions())
}

// HandleConflicts lists open conflicts.
// @Summary List Conflicts
// @Tags conflicts
// @Produce json
// @Success 200 {array} conflict.SyncConflict
// @Router /conflicts [get]
func (h *Handler) HandleConflicts(c *fiber.Ctx) error {
	return c.JSON(h.service.Engine().Conflicts())
}

// HandleConflict returns one open conflict.
// @Summary Get Conflict
// @Tags conflicts
// @Produce json
// @Param id path string true "Conflict id"
// @Success 200 {object} conflict.SyncConflict
// @Failure 404 {object} map[string]string
// @Router /conflicts/{id} [get]
func (h *Handler) HandleConflict(c *fiber.Ctx) error {
	found, ok := h.service.Engine().Conflict(c.Params("id"))
	if !ok {
		return h.fail(c, coresync.ErrConflictNotFound)
	}
	return c.JSON(found)
}

// HandleResolve resolves a conflict.
// @Summary Resolve Conflict
// @Description Body is {"choice":"local|remote|merge","data":{...}} or {"strategy":"remote-wins"}.
// @Tags conflicts
// @Accept json
// @Produce json
// @Param id path string true "Conflict id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /conflicts/{id}/resolve [post]
func (h *Handler) HandleResolve(c *fiber.Ctx) error {
	var req ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, badRequest(err))
	}
	resolved, err := h.service.Resolve(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"resolved": true, "entity": resolved})
}

func bodyMap(c *fiber.Ctx) (map[string]any, error) {
	payload := map[string]any{}
	if len(c.Body()) == 0 {
		return payload, nil
	}
	if err := c.BodyParser(&payload); err != nil {
		return nil, badRequest(err)
	}
	return payload, nil
}

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return ErrBadRequest }

func badRequest(err error) error {
	return requestError{err: err}
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var (
		validation *normalize.ValidationError
		unknown    *conflict.UnknownStrategyError
		syncErr    *coresync.SyncError
	)
	switch {
	case errors.Is(err, schema.ErrUnknownType),
		errors.Is(err, coresync.ErrConflictNotFound),
		errors.Is(err, source.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &validation),
		errors.As(err, &unknown),
		errors.Is(err, ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, coresync.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, conflict.ErrManual),
		errors.Is(err, conflict.ErrNoCustomResolver):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, coresync.ErrOffline):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &syncErr):
		if syncErr.Retryable {
			return fiber.StatusServiceUnavailable
		}
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	body := fiber.Map{"error": err.Error()}

	var conflictErr *coresync.ConflictError
	if errors.As(err, &conflictErr) {
		body["conflict"] = conflictErr.Conflict
	}
	if status >= fiber.StatusInternalServerError {
		logger.WithRayID(h.service.logger, c).Error("Request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	} else if strings.HasPrefix(c.Path(), "/sync") {
		logger.WithRayID(h.service.logger, c).Debug("Sync request rejected", zap.Error(err))
	}
	return c.Status(status).JSON(body)
}
