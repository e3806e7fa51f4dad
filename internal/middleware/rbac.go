package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/eduai-go-api/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the
// allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := RoleValue(c)
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, utils.KindUnauthorized, "insufficient permissions")
		}
		return c.Next()
	}
}

// RoleValue extracts the normalized role bound to the request.
func RoleValue(c *fiber.Ctx) string {
	if value := c.Locals(LocalUserRole); value != nil {
		if role, ok := value.(string); ok {
			return strings.ToLower(strings.TrimSpace(role))
		}
	}
	return ""
}
