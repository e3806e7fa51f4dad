package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduai-go-api/internal/middleware"
	"github.com/noah-isme/eduai-go-api/internal/service"
	"github.com/noah-isme/eduai-go-api/internal/utils"
	"github.com/noah-isme/eduai-go-api/pkg/ai"
)

// actorFromCtx builds the explicit authorization context handed to every
// service call from the verified identity bound by the JWT middleware.
func actorFromCtx(c *fiber.Ctx) (service.Actor, bool) {
	userID, _ := c.Locals(middleware.LocalUserID).(string)
	if userID == "" {
		return service.Actor{}, false
	}

	role, _ := c.Locals(middleware.LocalUserRole).(string)
	subjects, _ := c.Locals(middleware.LocalSubjects).([]string)

	return service.Actor{UserID: userID, Role: role, Subjects: subjects}, true
}

// handleServiceError maps service failures onto stable response kinds.
func handleServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	var invalidState *service.InvalidStateError

	switch {
	case errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrTeacherNotFound),
		errors.Is(err, service.ErrParentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, utils.KindNotFound, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, utils.KindUnauthorized, "access denied")
	case errors.As(err, &invalidState):
		return utils.SendError(c, fiber.StatusConflict, utils.KindInvalidState, invalidState.Error())
	case errors.Is(err, ai.ErrUnsupportedModality):
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindUnsupportedModality, err.Error())
	case errors.Is(err, ai.ErrInvalidPayload):
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, err.Error())
	case errors.Is(err, ai.ErrEvaluatorUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, utils.KindEvaluatorUnavailable, "evaluation service unavailable")
	case errors.Is(err, service.ErrNarrationUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, utils.KindNarrationUnavailable, "narration service unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, utils.KindValidationError, validationErrors.Error())
	default:
		logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, utils.KindInternal, "internal server error")
	}
}

func parseQueryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	value := c.Query(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if parsed, err = time.Parse("2006-01-02", value); err != nil {
			return nil, fmt.Errorf("invalid %s", key)
		}
	}
	return &parsed, nil
}
