package middleware

import (
	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

// RestrictTo lets only users with one of roles through. It must run after
// Protect.
func RestrictTo(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !allowed[user.Role] {
			return apperr.Forbidden("You do not have permission to perform this action")
		}
		return c.Next()
	}
}
