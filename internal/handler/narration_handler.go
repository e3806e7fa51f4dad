package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/service"
	"github.com/noah-isme/eduai-go-api/internal/utils"
)

// NarrationHandler serves feedback translation and audio narration.
type NarrationHandler struct {
	service service.NarrationService
	logger  zerolog.Logger
}

// NewNarrationHandler builds a narration handler instance.
func NewNarrationHandler(service service.NarrationService, logger zerolog.Logger) *NarrationHandler {
	return &NarrationHandler{
		service: service,
		logger:  logger.With().Str("component", "narration_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *NarrationHandler) Register(router fiber.Router) {
	router.Get("/:id/translate", h.translate)
	router.Post("/:id/narrate", h.narrate)
}

func (h *NarrationHandler) translate(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	language := c.Query("language")
	if language == "" {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, "language query parameter is required")
	}

	translation, err := h.service.Translate(c.Context(), actor, c.Params("id"), language)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "feedback translated", translation)
}

func (h *NarrationHandler) narrate(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	var payload dto.NarrationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, "invalid request body")
	}

	narration, err := h.service.Narrate(c.Context(), actor, c.Params("id"), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "narration ready", narration)
}
