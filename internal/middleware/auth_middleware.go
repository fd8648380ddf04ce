package middleware

import (
	"context"
	"strings"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/gofiber/fiber/v2"
)

const (
	// CookieName holds the session token for browser clients.
	CookieName = "jwt"
	// LoggedOut is the cookie value written on logout.
	LoggedOut = "loggedout"

	userKey = "user"
)

// Resolver maps a session token to its user.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// Protect requires a valid session and stores the user for later handlers.
func Protect(auth Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c)
		if token == "" {
			return apperr.Unauthorized("You are not logged in! Please log in to get access.")
		}

		user, err := auth.Resolve(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(userKey, user)
		return c.Next()
	}
}

// IsLoggedIn resolves the cookie session for rendered pages. It never
// fails; anonymous visitors simply have no user.
func IsLoggedIn(auth Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(CookieName)
		if token == "" || token == LoggedOut {
			return c.Next()
		}
		if user, err := auth.Resolve(c.UserContext(), token); err == nil {
			c.Locals(userKey, user)
		}
		return c.Next()
	}
}

// CurrentUser returns the user stored by Protect or IsLoggedIn.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userKey).(*models.User)
	return u
}

func tokenFrom(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie := c.Cookies(CookieName); cookie != LoggedOut {
		return cookie
	}
	return ""
}
