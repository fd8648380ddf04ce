package handlers

import (
	"net/url"

	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/gofiber/fiber/v2"
)

const statusSuccess = "success"

func sendData(c *fiber.Ctx, status int, key string, value any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": statusSuccess,
		"data":   fiber.Map{key: value},
	})
}

func sendOne(c *fiber.Ctx, status int, doc any) error {
	return sendData(c, status, "data", doc)
}

func sendList[T any](c *fiber.Ctx, page repository.PagedResult[T]) error {
	return c.JSON(fiber.Map{
		"status":  statusSuccess,
		"results": page.Results,
		"data":    fiber.Map{"data": page.Data},
	})
}

// queryValues keeps repeated parameters, which c.Queries would collapse.
func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Request().URI().QueryArgs().VisitAll(func(k, v []byte) {
		values.Add(string(k), string(v))
	})
	return values
}
