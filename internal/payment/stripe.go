// Package payment creates hosted checkout sessions and verifies the
// webhook calls that confirm them.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// CheckoutRequest describes a single tour purchase.
type CheckoutRequest struct {
	TourID        string
	TourName      string
	Summary       string
	ImageURLs     []string
	Price         float64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session is the hosted checkout page the client is sent to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CompletedCheckout is the part of a paid session needed to book the tour.
type CompletedCheckout struct {
	SessionID     string
	TourID        string
	CustomerEmail string
	Amount        float64
}

type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	s := &Stripe{webhookSecret: webhookSecret}
	if secretKey != "" {
		s.api = client.New(secretKey, nil)
	}
	return s
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		ClientReferenceID:  stripe.String(req.TourID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(math.Round(req.Price * 100))),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(req.TourName + " Tour"),
					Description: stripe.String(req.Summary),
					Images:      stripe.StringSlice(req.ImageURLs),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// ParseCheckoutCompleted verifies the webhook signature. It returns nil
// without error for events other than a completed checkout.
func (s *Stripe) ParseCheckoutCompleted(payload []byte, signature string) (*CompletedCheckout, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("webhook error: %w", err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("webhook error: %w", err)
	}
	return &CompletedCheckout{
		SessionID:     sess.ID,
		TourID:        sess.ClientReferenceID,
		CustomerEmail: sess.CustomerEmail,
		Amount:        float64(sess.AmountTotal) / 100,
	}, nil
}
