package models

import (
	"testing"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	PasswordCost = bcrypt.MinCost
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func validTour() *Tour {
	return &Tour{
		Name:         "  The Forest Hiker  ",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   "easy",
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
	}
}

func TestTourBeforeSaveDerivesFields(t *testing.T) {
	tour := validTour()
	require.NoError(t, tour.BeforeSave(SaveOp{IsNew: true, Now: now}))

	assert.Equal(t, "The Forest Hiker", tour.Name)
	assert.Equal(t, "the-forest-hiker", tour.Slug)
	assert.Equal(t, 4.5, tour.RatingsAverage)
	assert.Equal(t, now, tour.CreatedAt)

	tour.Name = "The Forest Hiker Deluxe"
	tour.RatingsAverage = 4.6666
	require.NoError(t, tour.BeforeSave(SaveOp{Now: now}))
	assert.Equal(t, "the-forest-hiker-deluxe", tour.Slug)
	assert.Equal(t, 4.7, tour.RatingsAverage)

	tour.AfterLoad()
	assert.InDelta(t, 5.0/7, tour.DurationWeeks, 1e-9)
}

func TestTourValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Tour)
		field  string
		msg    string
	}{
		"short name":     {func(t *Tour) { t.Name = "Short" }, "name", "A tour name must have more or equal than 10 characters"},
		"long name":      {func(t *Tour) { t.Name = "This tour name is far too long to be accepted" }, "name", "A tour name must have less or equal than 40 characters"},
		"difficulty":     {func(t *Tour) { t.Difficulty = "extreme" }, "difficulty", "Difficulty is either: easy, medium, difficult"},
		"missing price":  {func(t *Tour) { t.Price = 0 }, "price", "A tour must have a price"},
		"discount":       {func(t *Tour) { t.PriceDiscount = 500 }, "priceDiscount", "Discount price (500) should be below regular price"},
		"rating too big": {func(t *Tour) { t.RatingsAverage = 5.5 }, "ratingsAverage", "Rating must be below 5.0"},
		"bad location": {func(t *Tour) {
			t.Locations = []GeoPoint{{Coordinates: []float64{1}}}
		}, "locations[0].coordinates", "Path `locations[0].coordinates` must have exactly 2 entries"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tour := validTour()
			tc.mutate(tour)
			err := tour.BeforeSave(SaveOp{IsNew: true, Now: now})
			e, ok := apperr.As(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Equal(t, tc.msg, e.Fields[tc.field])
		})
	}
}

func TestTourDiscountRevalidatedOnUpdate(t *testing.T) {
	tour := validTour()
	require.NoError(t, tour.BeforeSave(SaveOp{IsNew: true, Now: now}))

	tour.PriceDiscount = 1000
	err := tour.BeforeSave(SaveOp{Now: now})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUserBeforeSaveHashesPassword(t *testing.T) {
	u := &User{Name: "Jonas", Email: "  Jonas@Example.COM "}
	u.SetPassword("pass1234", "pass1234")
	require.NoError(t, u.BeforeSave(SaveOp{IsNew: true, Now: now}))

	assert.Equal(t, "jonas@example.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, DefaultPhoto, u.Photo)
	assert.True(t, u.Active)
	assert.NotEqual(t, "pass1234", u.Password)
	assert.True(t, u.CorrectPassword("pass1234"))
	assert.False(t, u.CorrectPassword("pass12345"))
	assert.Nil(t, u.PasswordChangedAt, "new users have no password change")
}

func TestUserPasswordRules(t *testing.T) {
	u := &User{Name: "Jonas", Email: "jonas@example.com"}
	u.SetPassword("short", "other")
	err := u.BeforeSave(SaveOp{IsNew: true, Now: now})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "password")
	assert.Equal(t, "Passwords are not the same!", e.Fields["passwordConfirm"])

	u = &User{Name: "Jonas", Email: "jonas@example.com"}
	err = u.BeforeSave(SaveOp{IsNew: true, Now: now})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	u = &User{Name: "Jonas", Email: "not-an-email", Role: "root"}
	u.SetPassword("pass1234", "pass1234")
	e, _ = apperr.As(u.BeforeSave(SaveOp{IsNew: true, Now: now}))
	require.NotNil(t, e)
	assert.Equal(t, "Please provide a valid email", e.Fields["email"])
	assert.Equal(t, "Role is either: user, guide, lead-guide, admin", e.Fields["role"])
}

func TestUserPasswordChangeStampsTime(t *testing.T) {
	u := &User{Name: "Jonas", Email: "jonas@example.com"}
	u.SetPassword("pass1234", "pass1234")
	require.NoError(t, u.BeforeSave(SaveOp{IsNew: true, Now: now}))

	later := now.Add(time.Hour)
	u.SetPassword("newpass123", "newpass123")
	require.NoError(t, u.BeforeSave(SaveOp{Now: later}))
	require.NotNil(t, u.PasswordChangedAt)
	assert.Equal(t, later.Add(-time.Second), *u.PasswordChangedAt)

	assert.True(t, u.ChangedPasswordAfter(now))
	assert.False(t, u.ChangedPasswordAfter(later))
}

func TestUserSaveWithoutHashIsRefused(t *testing.T) {
	u := &User{ID: primitive.NewObjectID(), Name: "Jonas", Email: "jonas@example.com", Role: RoleUser}
	err := u.BeforeSave(SaveOp{Now: now})
	assert.True(t, apperr.Is(err, apperr.KindServer))
}

func TestPasswordResetTokenIsStoredHashed(t *testing.T) {
	u := &User{}
	token, err := u.CreatePasswordResetToken(now)
	require.NoError(t, err)

	assert.Len(t, token, 64)
	assert.NotEqual(t, token, u.PasswordResetToken)
	assert.Equal(t, HashResetToken(token), u.PasswordResetToken)
	require.NotNil(t, u.PasswordResetExpires)
	assert.Equal(t, now.Add(10*time.Minute), *u.PasswordResetExpires)

	u.ClearPasswordReset()
	assert.Empty(t, u.PasswordResetToken)
	assert.Nil(t, u.PasswordResetExpires)
}

func TestReviewAndBookingValidation(t *testing.T) {
	r := &Review{Review: " Great ", Rating: 6, Tour: primitive.NewObjectID()}
	e, ok := apperr.As(r.BeforeSave(SaveOp{IsNew: true, Now: now}))
	require.True(t, ok)
	assert.Equal(t, "Rating must be below 5.0", e.Fields["rating"])
	assert.Equal(t, "Review must belong to a user", e.Fields["user"])

	b := &Booking{Tour: primitive.NewObjectID(), User: primitive.NewObjectID(), Price: 497}
	require.NoError(t, b.BeforeSave(SaveOp{IsNew: true, Now: now}))
	require.NotNil(t, b.Paid)
	assert.True(t, *b.Paid)
	assert.Equal(t, now, b.CreatedAt)
}
