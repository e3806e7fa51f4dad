package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/service"
	"github.com/noah-isme/eduai-go-api/internal/utils"
)

// ParentHandler serves the guardian-facing progress and preference endpoints.
type ParentHandler struct {
	service service.ParentService
	logger  zerolog.Logger
}

// NewParentHandler builds a parent handler instance.
func NewParentHandler(service service.ParentService, logger zerolog.Logger) *ParentHandler {
	return &ParentHandler{
		service: service,
		logger:  logger.With().Str("component", "parent_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ParentHandler) Register(router fiber.Router) {
	router.Get("/children/progress", h.childrenProgress)
	router.Get("/preferences", h.preferences)
	router.Put("/preferences", h.updatePreferences)
	router.Get("/weekly-summary", h.weeklySummary)
}

func (h *ParentHandler) childrenProgress(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	progress, err := h.service.ChildrenProgress(c.Context(), actor)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "children progress", progress)
}

func (h *ParentHandler) preferences(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	prefs, err := h.service.Preferences(c.Context(), actor)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notification preferences", prefs)
}

func (h *ParentHandler) updatePreferences(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	var payload dto.ParentPreferencesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, "invalid request body")
	}

	prefs, err := h.service.UpdatePreferences(c.Context(), actor, payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "preferences updated", prefs)
}

func (h *ParentHandler) weeklySummary(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	summary, err := h.service.WeeklySummary(c.Context(), actor)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "weekly summary generated", summary)
}
