package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/service"
	"github.com/noah-isme/eduai-go-api/internal/utils"
)

// SubmissionHandler manages submission lifecycle endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, "invalid request body")
	}

	submission, err := h.service.Create(c.Context(), actor, payload)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	submission, err := h.service.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	filter := dto.SubmissionFilter{}
	if subject := c.Query("subject"); subject != "" {
		filter.Subject = &subject
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	from, err := parseQueryTime(c, "from")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, err.Error())
	}
	filter.From = from

	to, err := parseQueryTime(c, "to")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, err.Error())
	}
	filter.To = to

	if filter.Page, err = parseQueryInt(c, "page", 1); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, err.Error())
	}
	if filter.Limit, err = parseQueryInt(c, "limit", 10); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, err.Error())
	}

	submissions, err := h.service.List(c.Context(), actor, filter)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}
