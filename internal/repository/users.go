package repository

import (
	"context"
	"strings"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Users adds the account lookups needed by authentication.
type Users struct {
	*Repository[models.User, *models.User]
}

func NewUsers(coll *mongo.Collection, now func() time.Time) *Users {
	return &Users{New[models.User](coll, Config[models.User]{
		Scope:  activeOnly,
		Hidden: []string{"password"},
		Now:    now,
	})}
}

// FindByEmail loads an active user together with the password hash.
func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return u.FindOne(ctx, bson.M{"email": email}, WithHidden("password"))
}

// FindByResetToken loads the user owning an unexpired hashed reset token.
func (u *Users) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*models.User, error) {
	return u.FindOne(ctx, bson.M{
		"passwordResetToken":   hashed,
		"passwordResetExpires": bson.M{"$gt": now},
	}, WithHidden("password"))
}

// Deactivate soft deletes an account; it disappears from default reads.
func (u *Users) Deactivate(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	res, err := u.Collection().UpdateByID(ctx, oid, bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("No document found with that ID")
	}
	return nil
}
