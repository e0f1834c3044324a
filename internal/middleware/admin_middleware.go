package middleware

import (
	"github.com/arzan03/urbanscope/internal/models"
	"github.com/gofiber/fiber/v2"
)

// RequireRoles lets the request through only when the authenticated user holds
// one of roles. It must run after Gate.Protect.
func RequireRoles(message string, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return unauthorized(c, "Not authorized")
		}
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": message})
	}
}

func RequireAdmin() fiber.Handler {
	return RequireRoles("Not authorized as admin", models.RoleAdmin)
}

func RequireAgentOrAdmin() fiber.Handler {
	return RequireRoles("Not authorized as agent", models.RoleAgent, models.RoleAdmin)
}
