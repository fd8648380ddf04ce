package repository

import (
	"context"
	"time"

	"github.com/arzan03/TourBooking/internal/db"
	"github.com/arzan03/TourBooking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	Tours   = Repository[models.Tour, *models.Tour]
	Reviews = Repository[models.Review, *models.Review]
)

// TourRepeatable are the tour query parameters allowed to repeat.
var TourRepeatable = []string{"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price"}

// Store bundles the repositories of every collection.
type Store struct {
	Users    *Users
	Tours    *Tours
	Reviews  *Reviews
	Bookings *Bookings
}

func NewStore(database *mongo.Database, now func() time.Time) *Store {
	users := database.Collection(db.Users)
	tours := database.Collection(db.Tours)
	reviews := database.Collection(db.Reviews)
	bookings := database.Collection(db.Bookings)

	return &Store{
		Users: NewUsers(users, now),
		Tours: New[models.Tour](tours, Config[models.Tour]{
			Scope:      bson.M{"secretTour": bson.M{"$ne": true}},
			Repeatable: TourRepeatable,
			Populators: map[string]Populator[models.Tour]{
				"guides":  populateGuides(users),
				"reviews": populateTourReviews(reviews, users),
			},
			DefaultPopulate: []string{"guides"},
			Now:             now,
		}),
		Reviews: New[models.Review](reviews, Config[models.Review]{
			Populators: map[string]Populator[models.Review]{
				"reviewer": populateReviewer(users),
			},
			DefaultPopulate: []string{"reviewer"},
			AfterWrite: func(ctx context.Context, prev, r *models.Review) error {
				if prev != nil && prev.Tour != r.Tour {
					if err := CalcAverageRatings(ctx, reviews, tours, prev.Tour); err != nil {
						return err
					}
				}
				return CalcAverageRatings(ctx, reviews, tours, r.Tour)
			},
			Now: now,
		}),
		Bookings: NewBookings(bookings, tours, users, now),
	}
}

var activeOnly = bson.M{"active": bson.M{"$ne": false}}

func profiles(ctx context.Context, users *mongo.Collection, ids []primitive.ObjectID, fields ...string) (map[primitive.ObjectID]models.Profile, error) {
	out := make(map[primitive.ObjectID]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	proj := bson.D{}
	for _, f := range fields {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	filter := bson.M{"_id": bson.M{"$in": ids}, "active": activeOnly["active"]}
	cur, err := users.Find(ctx, filter, options.Find().SetProjection(proj))
	if err != nil {
		return nil, err
	}
	var found []models.Profile
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	for _, p := range found {
		out[p.ID] = p
	}
	return out, nil
}

func populateGuides(users *mongo.Collection) Populator[models.Tour] {
	return func(ctx context.Context, t *models.Tour) error {
		byID, err := profiles(ctx, users, t.Guides, "name", "email", "photo", "role")
		if err != nil {
			return err
		}
		t.GuideProfiles = make([]models.Profile, 0, len(t.Guides))
		for _, id := range t.Guides {
			if p, ok := byID[id]; ok {
				t.GuideProfiles = append(t.GuideProfiles, p)
			}
		}
		return nil
	}
}

func populateTourReviews(reviews, users *mongo.Collection) Populator[models.Tour] {
	return func(ctx context.Context, t *models.Tour) error {
		cur, err := reviews.Find(ctx, bson.M{"tour": t.ID},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			return err
		}
		list := make([]models.Review, 0)
		if err := cur.All(ctx, &list); err != nil {
			return err
		}

		ids := make([]primitive.ObjectID, 0, len(list))
		for _, r := range list {
			ids = append(ids, r.User)
		}
		byID, err := profiles(ctx, users, ids, "name", "photo")
		if err != nil {
			return err
		}
		for i := range list {
			if p, ok := byID[list[i].User]; ok {
				list[i].Reviewer = &p
			}
		}
		t.Reviews = list
		return nil
	}
}

func populateReviewer(users *mongo.Collection) Populator[models.Review] {
	return func(ctx context.Context, r *models.Review) error {
		byID, err := profiles(ctx, users, []primitive.ObjectID{r.User}, "name", "photo")
		if err != nil {
			return err
		}
		if p, ok := byID[r.User]; ok {
			r.Reviewer = &p
		}
		return nil
	}
}

func populateBookingTour(tours *mongo.Collection) Populator[models.Booking] {
	return func(ctx context.Context, b *models.Booking) error {
		var t struct {
			Name string `bson:"name"`
		}
		err := tours.FindOne(ctx, bson.M{"_id": b.Tour},
			options.FindOne().SetProjection(bson.D{{Key: "name", Value: 1}})).Decode(&t)
		if err == mongo.ErrNoDocuments {
			return nil
		}
		if err != nil {
			return err
		}
		b.TourName = t.Name
		return nil
	}
}

func populateCustomer(users *mongo.Collection) Populator[models.Booking] {
	return func(ctx context.Context, b *models.Booking) error {
		byID, err := profiles(ctx, users, []primitive.ObjectID{b.User}, "name", "email")
		if err != nil {
			return err
		}
		if p, ok := byID[b.User]; ok {
			b.Customer = &p
		}
		return nil
	}
}
