package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/service"
	"github.com/noah-isme/eduai-go-api/internal/utils"
)

// ReviewHandler manages teacher override and bulk-approve endpoints.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Put("/:id/review", h.review)
	router.Post("/bulk-approve", h.bulkApprove)
}

func (h *ReviewHandler) review(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, "invalid request body")
	}

	submission, err := h.service.Override(c.Context(), actor, c.Params("id"), payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "review submitted", submission)
}

func (h *ReviewHandler) bulkApprove(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	var payload dto.BulkApproveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, "invalid request body")
	}

	result, err := h.service.BulkApprove(c.Context(), actor, payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "bulk approval completed", result)
}
