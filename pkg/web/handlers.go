// Package web provides the HTTP supervision surface for in-flight runs:
// inspecting run status, delivering human input and requesting cancellation.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/events"
	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stagehand-io/stagehand/pkg/registry"
	"github.com/stagehand-io/stagehand/pkg/workflow"
)

type APIHandlers struct {
	executor    *workflow.Executor
	registry    *registry.Registry
	persistence persistence.Persistence
	bus         eventbus.EventPublisher
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	executor *workflow.Executor,
	reg *registry.Registry,
	persist persistence.Persistence,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		executor:    executor,
		registry:    reg,
		persistence: persist,
		bus:         bus,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "web"),
	}
}

// RegisterRoutes mounts the supervision endpoints on app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get("/plugins", h.GetPlugins)
	app.Get("/runs/:id", h.GetRun)
	app.Post("/runs/:id/input", h.PostRunInput)
	app.Post("/runs/:id/cancel", h.PostRunCancel)
}

type pluginInfo struct {
	Name         string           `json:"name"`
	Capabilities []capabilityInfo `json:"capabilities"`
}

type capabilityInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *APIHandlers) GetPlugins(c fiber.Ctx) error {
	names := h.registry.PluginNames()
	infos := make([]pluginInfo, 0, len(names))

	for _, name := range names {
		plugin, err := h.registry.Get(name)
		if err != nil {
			continue
		}

		info := pluginInfo{Name: name}
		for _, cap := range plugin.Capabilities() {
			info.Capabilities = append(info.Capabilities, capabilityInfo{
				Name:        cap.Name,
				Description: cap.Description,
			})
		}

		infos = append(infos, info)
	}

	return c.JSON(fiber.Map{"plugins": infos})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	// A run tracked by the executor is authoritative; fall back to the last
	// persisted snapshot for runs from earlier process lifetimes.
	if status, ok := h.executor.RunStatus(id); ok {
		return c.JSON(fiber.Map{"run_id": id, "status": status})
	}

	if h.persistence == nil {
		return notFound(c, "Run not found")
	}

	snapshot, err := h.persistence.RunRepository().RunByID(c.Context(), id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(snapshot)
}

type runInputRequest struct {
	Value any `json:"value" validate:"required"`
}

func (h *APIHandlers) PostRunInput(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	var req runInputRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := &events.InputReceived{
		BaseEvent: events.NewBaseEvent("", id),
		Value:     req.Value,
	}

	if err := h.bus.Publish(c.Context(), id, event); err != nil {
		h.logger.ErrorContext(c.Context(), "Failed to deliver input", "run_id", id, "error", err)

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": id, "delivered": true})
}

func (h *APIHandlers) PostRunCancel(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	event := &events.CancelRequested{
		BaseEvent: events.NewBaseEvent("", id),
		Reason:    "cancelled via API",
	}

	if err := h.bus.Publish(c.Context(), id, event); err != nil {
		h.logger.ErrorContext(c.Context(), "Failed to deliver cancel request", "run_id", id, "error", err)

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": id, "cancel_requested": true})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	checkers := fiber.Map{"registry": len(h.registry.PluginNames())}

	if h.persistence != nil {
		if err := h.persistence.HealthCheck(c.Context()); err != nil {
			status = "unhealthy"
			httpStatus = http.StatusInternalServerError
			checkers["persistence"] = err.Error()
		} else {
			checkers["persistence"] = "ok"
		}
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"checkers":  checkers,
		"timestamp": time.Now().UTC(),
	})
}
