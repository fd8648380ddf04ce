package models

import (
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultRatingsAverage = 4.5

// GeoPoint is a GeoJSON point with presentation data.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type" validate:"oneof=Point"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"len=2"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

type Tour struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name            string               `bson:"name" json:"name" validate:"required,min=10,max=40"`
	Slug            string               `bson:"slug" json:"slug"`
	Duration        int                  `bson:"duration" json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int                  `bson:"maxGroupSize" json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      string               `bson:"difficulty" json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage" validate:"gte=1,lte=5"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity" validate:"gte=0"`
	Price           float64              `bson:"price" json:"price" validate:"required,gt=0"`
	PriceDiscount   float64              `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty" validate:"omitempty,gte=0,ltfield=Price"`
	Summary         string               `bson:"summary" json:"summary" validate:"required"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string               `bson:"imageCover,omitempty" json:"imageCover,omitempty"`
	Images          []string             `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	StartDates      []time.Time          `bson:"startDates,omitempty" json:"startDates,omitempty"`
	SecretTour      bool                 `bson:"secretTour" json:"secretTour"`
	StartLocation   *GeoPoint            `bson:"startLocation,omitempty" json:"startLocation,omitempty"`
	Locations       []GeoPoint           `bson:"locations,omitempty" json:"locations,omitempty" validate:"dive"`
	Guides          []primitive.ObjectID `bson:"guides,omitempty" json:"guides,omitempty"`

	// virtual fields, resolved on read
	DurationWeeks float64   `bson:"-" json:"durationWeeks"`
	GuideProfiles []Profile `bson:"-" json:"guideProfiles,omitempty"`
	Reviews       []Review  `bson:"-" json:"reviews,omitempty"`
}

var tourMessages = map[string]string{
	"name.required":         "A tour must have a name",
	"name.min":              "A tour name must have more or equal than 10 characters",
	"name.max":              "A tour name must have less or equal than 40 characters",
	"duration.required":     "A tour must have a duration",
	"maxGroupSize.required": "A tour must have a group size",
	"difficulty.required":   "A tour must have a difficulty",
	"difficulty.oneof":      "Difficulty is either: easy, medium, difficult",
	"ratingsAverage.gte":    "Rating must be above 1.0",
	"ratingsAverage.lte":    "Rating must be below 5.0",
	"price.required":        "A tour must have a price",
	"priceDiscount.ltfield": "Discount price (%v) should be below regular price",
	"summary.required":      "A tour must have a summary",
}

func (t *Tour) GetID() primitive.ObjectID   { return t.ID }
func (t *Tour) SetID(id primitive.ObjectID) { t.ID = id }

// BeforeSave applies defaults, validates, derives the slug and rounds the
// rating average. It runs on creates and on updates alike.
func (t *Tour) BeforeSave(op SaveOp) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)

	if op.IsNew {
		if t.RatingsAverage == 0 {
			t.RatingsAverage = defaultRatingsAverage
		}
		t.CreatedAt = op.Now
	}
	if t.StartLocation != nil && t.StartLocation.Type == "" {
		t.StartLocation.Type = "Point"
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = "Point"
		}
	}
	t.RatingsAverage = RoundRating(t.RatingsAverage)

	if !op.SkipValidation {
		fields, err := checkStruct(t, tourMessages)
		if err != nil {
			return err
		}
		if err := validationError(fields); err != nil {
			return err
		}
	}

	t.Slug = slug.Make(t.Name)
	return nil
}

func (t *Tour) AfterLoad() {
	t.DurationWeeks = float64(t.Duration) / 7
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
