package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BodyLimit rejects non-multipart request bodies larger than max bytes.
// Photo uploads are bounded by the server wide limit instead.
func BodyLimit(max int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			return c.Next()
		}
		if len(c.Body()) > max {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Request body is too large")
		}
		return c.Next()
	}
}
