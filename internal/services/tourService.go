package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
	metersToMiles    = 0.000621371
	metersToKm       = 0.001
)

var notSecret = bson.M{"$ne": true}

type TourStats struct {
	Difficulty string  `bson:"_id" json:"_id"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

type MonthlyPlan struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}

type TourDistance struct {
	ID       any     `bson:"_id" json:"_id"`
	Name     string  `bson:"name" json:"name"`
	Distance float64 `bson:"distance" json:"distance"`
}

// TourService runs the reporting and geo queries over the tours collection.
type TourService struct {
	tours *mongo.Collection
}

func NewTourService(tours *mongo.Collection) *TourService {
	return &TourService{tours: tours}
}

// Stats groups well rated tours by difficulty.
func (s *TourService) Stats(ctx context.Context) ([]TourStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"secretTour": notSecret, "ratingsAverage": bson.M{"$gte": 4.5}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	}
	stats := make([]TourStats, 0)
	return stats, s.aggregate(ctx, pipeline, &stats)
}

// MonthlyPlan counts tour starts per month of year.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"secretTour": notSecret}}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}, {Key: "month", Value: 1}}}},
		{{Key: "$limit", Value: 12}},
	}
	plan := make([]MonthlyPlan, 0)
	return plan, s.aggregate(ctx, pipeline, &plan)
}

// Within finds tours starting inside distance (in unit) of latlng.
func (s *TourService) Within(ctx context.Context, distance float64, latlng, unit string) ([]models.Tour, error) {
	lat, lng, err := ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	radius := distance / earthRadiusKm
	if unit == "mi" {
		radius = distance / earthRadiusMiles
	}

	filter := bson.M{
		"secretTour": notSecret,
		"startLocation": bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{bson.A{lng, lat}, radius},
		}},
	}
	cur, err := s.tours.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	tours := make([]models.Tour, 0)
	if err := cur.All(ctx, &tours); err != nil {
		return nil, err
	}
	for i := range tours {
		tours[i].AfterLoad()
	}
	return tours, nil
}

// Distances lists every tour with its distance from latlng, nearest first.
func (s *TourService) Distances(ctx context.Context, latlng, unit string) ([]TourDistance, error) {
	lat, lng, err := ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	multiplier := metersToKm
	if unit == "mi" {
		multiplier = metersToMiles
	}

	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near":               bson.M{"type": "Point", "coordinates": bson.A{lng, lat}},
			"distanceField":      "distance",
			"distanceMultiplier": multiplier,
			"query":              bson.M{"secretTour": notSecret},
		}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}
	distances := make([]TourDistance, 0)
	return distances, s.aggregate(ctx, pipeline, &distances)
}

func (s *TourService) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := s.tours.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// ParseLatLng reads a "lat,lng" pair.
func ParseLatLng(s string) (lat, lng float64, err error) {
	bad := apperr.BadRequest("Please provide latitude and longitude in the format lat,lng.")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, bad
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, bad
	}
	return lat, lng, nil
}
