package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/eduai-go-api/internal/utils"
)

// Locals keys populated by JWTProtected for downstream handlers.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
	LocalSubjects = "user_subjects"
)

// JWTProtected returns a middleware that validates JWT bearer tokens and
// binds the verified identity (user id, role, subject access list) to the
// request. The pipeline trusts these claims and performs only authorization.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "invalid token claims")
		}

		userID := extractUserID(claims)
		if userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, utils.KindUnauthorized, "invalid token subject")
		}

		c.Locals(LocalUserID, userID)
		if role := extractRole(claims); role != "" {
			c.Locals(LocalUserRole, role)
		}
		if subjects := extractSubjects(claims); len(subjects) > 0 {
			c.Locals(LocalSubjects, subjects)
		}

		return c.Next()
	}
}

func extractUserID(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "uid"} {
		if value, ok := claims[key]; ok {
			if id, ok := value.(string); ok && strings.TrimSpace(id) != "" {
				return strings.TrimSpace(id)
			}
		}
	}
	return ""
}

func extractRole(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := strings.ToLower(strings.TrimSpace(str)); role != "" {
					return role
				}
			}
		}
	}
	return ""
}

func extractSubjects(claims jwt.MapClaims) []string {
	value, ok := claims["subjects"]
	if !ok {
		return nil
	}

	items, ok := value.([]interface{})
	if !ok {
		return nil
	}

	subjects := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
			subjects = append(subjects, strings.TrimSpace(str))
		}
	}
	return subjects
}
