package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Review    string             `bson:"review" json:"review" validate:"required"`
	Rating    int                `bson:"rating" json:"rating" validate:"required,min=1,max=5"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour" validate:"required"`
	User      primitive.ObjectID `bson:"user" json:"user" validate:"required"`

	Reviewer *Profile `bson:"-" json:"reviewer,omitempty"`
}

var reviewMessages = map[string]string{
	"review.required": "Review can not be empty!",
	"rating.required": "A review must have a rating",
	"rating.min":      "Rating must be above 1.0",
	"rating.max":      "Rating must be below 5.0",
	"tour.required":   "Review must belong to a tour.",
	"user.required":   "Review must belong to a user",
}

func (r *Review) GetID() primitive.ObjectID   { return r.ID }
func (r *Review) SetID(id primitive.ObjectID) { r.ID = id }

func (r *Review) BeforeSave(op SaveOp) error {
	r.Review = strings.TrimSpace(r.Review)
	if op.IsNew {
		r.CreatedAt = op.Now
	}
	if op.SkipValidation {
		return nil
	}
	fields, err := checkStruct(r, reviewMessages)
	if err != nil {
		return err
	}
	return validationError(fields)
}
