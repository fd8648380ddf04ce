package repository

import (
	"context"

	"github.com/arzan03/TourBooking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultRatingsAverage  = 4.5
	defaultRatingsQuantity = 0
)

type ratingStats struct {
	NRating   int     `bson:"nRating"`
	AvgRating float64 `bson:"avgRating"`
}

// CalcAverageRatings recomputes a tour's rating summary from its reviews.
// A tour without reviews falls back to the defaults.
func CalcAverageRatings(ctx context.Context, reviews, tours *mongo.Collection, tourID primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	}
	cur, err := reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	var stats []ratingStats
	if err := cur.All(ctx, &stats); err != nil {
		return err
	}

	quantity, average := defaultRatingsQuantity, defaultRatingsAverage
	if len(stats) > 0 {
		quantity, average = stats[0].NRating, stats[0].AvgRating
	}
	_, err = tours.UpdateByID(ctx, tourID, bson.M{"$set": bson.M{
		"ratingsQuantity": quantity,
		"ratingsAverage":  models.RoundRating(average),
	}})
	return err
}
