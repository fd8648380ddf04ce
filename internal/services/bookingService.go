package services

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strconv"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/events"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/payment"
	"github.com/arzan03/TourBooking/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TourReader interface {
	GetOne(ctx context.Context, id string, opts ...repository.ReadOption) (*models.Tour, error)
	GetAll(ctx context.Context, params url.Values, scope bson.M, opts ...repository.ReadOption) (repository.PagedResult[models.Tour], error)
}

type BookingStore interface {
	CreateOne(ctx context.Context, b *models.Booking) (*models.Booking, error)
	FindOne(ctx context.Context, filter bson.M, opts ...repository.ReadOption) (*models.Booking, error)
	BookedTourIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.Session, error)
	ParseCheckoutCompleted(payload []byte, signature string) (*payment.CompletedCheckout, error)
}

type BookingService struct {
	tours     TourReader
	bookings  BookingStore
	users     UserStore
	gateway   Gateway
	publisher events.Publisher
	logger    *log.Logger
}

func NewBookingService(tours TourReader, bookings BookingStore, users UserStore, gateway Gateway, publisher events.Publisher, logger *log.Logger) *BookingService {
	return &BookingService{tours: tours, bookings: bookings, users: users, gateway: gateway, publisher: publisher, logger: logger}
}

// Checkout opens a payment session for one tour. baseURL is the public
// origin used for redirect and image links.
func (s *BookingService) Checkout(ctx context.Context, user *models.User, tourID, baseURL string) (*payment.Session, error) {
	tour, err := s.tours.GetOne(ctx, tourID)
	if err != nil {
		return nil, err
	}

	var images []string
	if tour.ImageCover != "" {
		images = []string{baseURL + "/img/tours/" + tour.ImageCover}
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		TourID:        tour.ID.Hex(),
		TourName:      tour.Name,
		Summary:       tour.Summary,
		ImageURLs:     images,
		Price:         tour.Price,
		CustomerEmail: user.Email,
		SuccessURL:    baseURL + "/my-tours?alert=booking",
		CancelURL:     baseURL + "/tour/" + tour.Slug,
	})
	if errors.Is(err, payment.ErrNotConfigured) {
		return nil, apperr.Internal("Payments are not available right now", err)
	}
	if err != nil {
		return nil, apperr.Internal("Could not create checkout session", err)
	}
	return session, nil
}

// CompleteCheckout books the tour paid in a verified webhook call. Replayed
// webhooks for an already booked session are accepted without effect.
func (s *BookingService) CompleteCheckout(ctx context.Context, payload []byte, signature string) error {
	done, err := s.gateway.ParseCheckoutCompleted(payload, signature)
	if err != nil {
		return apperr.BadRequest(err.Error())
	}
	if done == nil {
		return nil
	}

	if _, err := s.bookings.FindOne(ctx, bson.M{"sessionId": done.SessionID}); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	tourID, err := primitive.ObjectIDFromHex(done.TourID)
	if err != nil {
		return apperr.BadRequest("Checkout session does not reference a tour")
	}
	user, err := s.users.FindByEmail(ctx, done.CustomerEmail)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("There is no user with email address.")
	}
	if err != nil {
		return err
	}

	booking, err := s.bookings.CreateOne(ctx, &models.Booking{
		Tour:      tourID,
		User:      user.ID,
		Price:     done.Amount,
		SessionID: done.SessionID,
	})
	if err != nil {
		return err
	}

	event := events.BookingCreated{
		BookingID: booking.ID.Hex(),
		TourID:    booking.Tour.Hex(),
		UserID:    booking.User.Hex(),
		Price:     booking.Price,
		CreatedAt: booking.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.SubjectBookingCreated, event); err != nil {
		s.logger.Printf("failed to publish %s for booking %s: %v", events.SubjectBookingCreated, event.BookingID, err)
	}
	return nil
}

// MyTours returns the tours the user has booked.
func (s *BookingService) MyTours(ctx context.Context, userID primitive.ObjectID) ([]*models.Tour, error) {
	booked, err := s.bookings.BookedTourIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(booked) == 0 {
		return []*models.Tour{}, nil
	}
	ids := make(bson.A, 0, len(booked))
	for _, id := range booked {
		ids = append(ids, id)
	}
	params := url.Values{"limit": {strconv.Itoa(len(ids))}}
	tours, err := s.tours.GetAll(ctx, params, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return tours.Data, nil
}
