package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduai-go-api/internal/service"
	"github.com/noah-isme/eduai-go-api/internal/utils"
)

// AnalyticsHandler exposes trend, statistics and weekly summary endpoints.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler builds an analytics handler instance.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// RegisterStudent attaches student-scoped analytics routes.
func (h *AnalyticsHandler) RegisterStudent(router fiber.Router) {
	router.Get("/:studentId/trend", h.trend)
	router.Get("/:studentId/weekly-summary", h.weeklySummary)
}

// RegisterTeacher attaches teacher-scoped analytics routes.
func (h *AnalyticsHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/statistics", h.statistics)
}

func (h *AnalyticsHandler) trend(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	windowDays, err := parseQueryInt(c, "window_days", 0)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, err.Error())
	}

	trend, err := h.service.StudentTrend(c.Context(), actor, c.Params("studentId"), windowDays)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "trend computed", trend)
}

func (h *AnalyticsHandler) statistics(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	from, err := parseQueryTime(c, "from")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, err.Error())
	}
	to, err := parseQueryTime(c, "to")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, err.Error())
	}

	stats, err := h.service.TeacherStatistics(c.Context(), actor, from, to)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "statistics computed", stats)
}

func (h *AnalyticsHandler) weeklySummary(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authentication required")
	}

	summary, err := h.service.WeeklySummary(c.Context(), actor, c.Params("studentId"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "weekly summary generated", summary)
}
