package handlers

import (
	"github.com/arzan03/TourBooking/internal/middleware"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// TourScope restricts nested review reads to the tour in the path.
func TourScope(c *fiber.Ctx) (bson.M, error) {
	raw := c.Params("tourId")
	if raw == "" {
		return nil, nil
	}
	id, err := repository.ParseID(raw)
	if err != nil {
		return nil, err
	}
	return bson.M{"tour": id}, nil
}

// SetTourUserIDs defaults a new review's tour to the path and its author
// to the caller.
func SetTourUserIDs(c *fiber.Ctx, review *models.Review) error {
	if review.Tour.IsZero() {
		if raw := c.Params("tourId"); raw != "" {
			id, err := repository.ParseID(raw)
			if err != nil {
				return err
			}
			review.Tour = id
		}
	}
	if review.User.IsZero() {
		if me := middleware.CurrentUser(c); me != nil {
			review.User = me.ID
		}
	}
	return nil
}
