package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/arzan03/TourBooking/internal/db"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTourService(t *testing.T) (*TourService, *repository.Store) {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := db.Connect(ctx, uri)
	require.NoError(t, err)
	database := client.Database("tourbooking_test_" + uuid.NewString()[:8])
	require.NoError(t, db.EnsureIndexes(ctx, database))
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	store := repository.NewStore(database, time.Now)
	return NewTourService(store.Tours.Collection()), store
}

func seedTour(t *testing.T, store *repository.Store, name, difficulty string, price float64, lng, lat float64, starts ...time.Time) {
	t.Helper()
	_, err := store.Tours.CreateOne(context.Background(), &models.Tour{
		Name:          name,
		Duration:      5,
		MaxGroupSize:  10,
		Difficulty:    difficulty,
		Price:         price,
		Summary:       "seeded",
		StartDates:    starts,
		StartLocation: &models.GeoPoint{Coordinates: []float64{lng, lat}},
	})
	require.NoError(t, err)
}

func TestTourAggregations(t *testing.T) {
	s, store := newTourService(t)
	ctx := context.Background()

	july := time.Date(2021, time.July, 20, 9, 0, 0, 0, time.UTC)
	march := time.Date(2021, time.March, 1, 9, 0, 0, 0, time.UTC)
	// Banff and Los Angeles
	seedTour(t, store, "The Forest Hiker", "easy", 397, -115.570154, 51.178456, july, march)
	seedTour(t, store, "The City Wanderer", "easy", 1197, -118.2437, 34.0522, july)
	seedTour(t, store, "The Snow Adventurer", "difficult", 997, -118.076152, 34.05, march.AddDate(1, 0, 0))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "EASY", stats[0].Difficulty)
	assert.Equal(t, 2, stats[0].NumTours)
	assert.Equal(t, 397.0, stats[0].MinPrice)

	plan, err := s.MonthlyPlan(ctx, 2021)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, 7, plan[0].Month)
	assert.Equal(t, 2, plan[0].NumTourStarts)

	near, err := s.Within(ctx, 100, "34.111745,-118.113491", "mi")
	require.NoError(t, err)
	assert.Len(t, near, 2)

	distances, err := s.Distances(ctx, "34.111745,-118.113491", "km")
	require.NoError(t, err)
	require.Len(t, distances, 3)
	assert.Less(t, distances[0].Distance, distances[2].Distance)
	assert.Equal(t, "The Forest Hiker", distances[2].Name)
}
