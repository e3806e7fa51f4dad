package utils

import "github.com/gofiber/fiber/v2"

// Stable error kinds carried on every failure response. Clients branch on
// the kind, never on message text.
const (
	KindNotFound             = "not_found"
	KindUnauthorized         = "unauthorized"
	KindInvalidState         = "invalid_state"
	KindValidationError      = "validation_error"
	KindUnsupportedModality  = "unsupported_modality"
	KindEvaluatorUnavailable = "evaluator_unavailable"
	KindNarrationUnavailable = "narration_unavailable"
	KindInternal             = "internal"
)

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
}

// SendSuccess sends a successful JSON response with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP
// status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendError sends an error JSON response with the given status code and
// stable error kind.
func SendError(c *fiber.Ctx, status int, kind, message string) error {
	if message == "" {
		message = "error"
	}
	if kind == "" {
		kind = KindInternal
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Kind:    kind,
		Message: message,
	})
}
