package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Booking struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour" validate:"required"`
	User      primitive.ObjectID `bson:"user" json:"user" validate:"required"`
	Price     float64            `bson:"price" json:"price" validate:"required,gt=0"`
	Paid      *bool              `bson:"paid" json:"paid"`
	SessionID string             `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`

	TourName string   `bson:"-" json:"tourName,omitempty"`
	Customer *Profile `bson:"-" json:"customer,omitempty"`
}

var bookingMessages = map[string]string{
	"tour.required":  "Booking must belong to a Tour!",
	"user.required":  "Booking must belong to a User!",
	"price.required": "Booking must have a price.",
}

func (b *Booking) GetID() primitive.ObjectID   { return b.ID }
func (b *Booking) SetID(id primitive.ObjectID) { b.ID = id }

func (b *Booking) BeforeSave(op SaveOp) error {
	if op.IsNew {
		b.CreatedAt = op.Now
	}
	if b.Paid == nil {
		paid := true
		b.Paid = &paid
	}
	if op.SkipValidation {
		return nil
	}
	fields, err := checkStruct(b, bookingMessages)
	if err != nil {
		return err
	}
	return validationError(fields)
}
