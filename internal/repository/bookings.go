package repository

import (
	"context"
	"time"

	"github.com/arzan03/TourBooking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Bookings struct {
	*Repository[models.Booking, *models.Booking]
}

func NewBookings(coll, tours, users *mongo.Collection, now func() time.Time) *Bookings {
	return &Bookings{New[models.Booking](coll, Config[models.Booking]{
		Populators: map[string]Populator[models.Booking]{
			"tour":     populateBookingTour(tours),
			"customer": populateCustomer(users),
		},
		DefaultPopulate: []string{"tour", "customer"},
		Now:             now,
	})}
}

// BookedTourIDs lists every distinct tour the user has booked.
func (b *Bookings) BookedTourIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	values, err := b.Collection().Distinct(ctx, "tour", bson.M{"user": userID})
	if err != nil {
		return nil, translate(err)
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
