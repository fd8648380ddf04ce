package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// Collection names.
const (
	Users    = "users"
	Tours    = "tours"
	Reviews  = "reviews"
	Bookings = "bookings"
)

// Connect opens the MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	log.Println("✅ Connected to MongoDB")
	return client, nil
}

var indexes = map[string][]mongo.IndexModel{
	Users: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	Tours: {
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}}},
		{Keys: bson.D{{Key: "slug", Value: 1}}},
		{Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}}},
	},
	Reviews: {
		{Keys: bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	Bookings: {
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	},
}

// EnsureIndexes creates the indexes every collection relies on: unique
// emails, tour names and one review per user and tour, plus the geo index
// used by distance queries.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, models := range indexes {
		name, models := name, models
		g.Go(func() error {
			if _, err := database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
				return fmt.Errorf("creating %s indexes: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
