// Package events publishes domain events for other services to consume.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const SubjectBookingCreated = "booking.created"

// BookingCreated is published once a paid checkout has been booked.
type BookingCreated struct {
	BookingID string    `json:"bookingId"`
	TourID    string    `json:"tourId"`
	UserID    string    `json:"userId"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close()
}

// NATS publishes JSON encoded events on a NATS connection.
type NATS struct {
	conn *nats.Conn
}

func ConnectNATS(url string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("tourbooking"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Println("✅ Connected to NATS")
	return &NATS{conn: conn}, nil
}

func (n *NATS) Publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.conn.Publish(subject, data)
}

func (n *NATS) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

// Discard is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, any) error { return nil }
func (Discard) Close()                                     {}
