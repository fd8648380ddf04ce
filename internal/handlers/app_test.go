package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arzan03/TourBooking/internal/config"
	"github.com/arzan03/TourBooking/internal/db"
	"github.com/arzan03/TourBooking/internal/events"
	"github.com/arzan03/TourBooking/internal/mail"
	"github.com/arzan03/TourBooking/internal/middleware"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/payment"
	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/arzan03/TourBooking/internal/services"
	"github.com/arzan03/TourBooking/internal/views"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

type outbox struct {
	mu    sync.Mutex
	links []string
}

func (o *outbox) SendWelcome(context.Context, mail.Recipient, string) error { return nil }

func (o *outbox) SendPasswordReset(_ context.Context, _ mail.Recipient, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links = append(o.links, url)
	return nil
}

func (o *outbox) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.links[len(o.links)-1]
}

type noGateway struct{}

func (noGateway) CreateCheckoutSession(context.Context, payment.CheckoutRequest) (*payment.Session, error) {
	return nil, payment.ErrNotConfigured
}

func (noGateway) ParseCheckoutCompleted([]byte, string) (*payment.CompletedCheckout, error) {
	return nil, payment.ErrNotConfigured
}

type testServer struct {
	app   *fiber.App
	store *repository.Store
	mail  *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	models.PasswordCost = bcrypt.MinCost

	ctx := context.Background()
	client, err := db.Connect(ctx, uri)
	require.NoError(t, err)
	database := client.Database("tourbooking_http_" + strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
	require.NoError(t, db.EnsureIndexes(ctx, database))
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	quiet := log.New(io.Discard, "", 0)
	store := repository.NewStore(database, nil)
	box := &outbox{}
	auth := services.NewAuthService(store.Users, services.NewTokenService("handlers-test-secret", time.Hour, nil), box, quiet, nil)
	renderer, err := views.New()
	require.NoError(t, err)

	app := NewApp(Deps{
		Config: &config.Config{
			Env:              config.EnvDevelopment,
			JWTCookieExpires: time.Hour,
			RateLimitMax:     1000,
			RateLimitWindow:  time.Hour,
		},
		Store:    store,
		Auth:     auth,
		Tours:    services.NewTourService(store.Tours.Collection()),
		Bookings: services.NewBookingService(store.Tours, store.Bookings, store.Users, noGateway{}, events.Discard{}, quiet),
		Views:    renderer,
		Logger:   quiet,
	})
	return &testServer{app: app, store: store, mail: box}
}

func (s *testServer) do(t *testing.T, method, target, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	} else {
		out["raw"] = string(raw)
	}
	return resp, out
}

func (s *testServer) signUp(t *testing.T, name, email string) string {
	t.Helper()
	resp, body := s.do(t, "POST", "/api/v1/users/signup", "", map[string]string{
		"name": name, "email": email, "password": "pass1234", "passwordConfirm": "pass1234",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body["token"].(string)
}

func (s *testServer) promote(t *testing.T, email, role string) {
	t.Helper()
	_, err := s.store.Users.Collection().UpdateOne(context.Background(),
		bson.M{"email": email}, bson.M{"$set": bson.M{"role": role}})
	require.NoError(t, err)
}

func dataOf(body map[string]any) map[string]any {
	return body["data"].(map[string]any)["data"].(map[string]any)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "Laura Wilson", "laura@example.com")

	resp, body := s.do(t, "GET", "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := dataOf(body)
	assert.Equal(t, "laura@example.com", me["email"])
	assert.Equal(t, "user", me["role"])
	assert.NotContains(t, me, "password")

	resp, body = s.do(t, "POST", "/api/v1/users/login", "", map[string]string{"email": "laura@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect email or password", body["message"])

	resp, body = s.do(t, "POST", "/api/v1/users/login", "", map[string]string{"email": "laura@example.com", "password": "pass1234"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.CookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	resp, body = s.do(t, "PATCH", "/api/v1/users/updateMe", token, map[string]string{"password": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "This route is not for password updates. Please use /updateMyPassword.", body["message"])

	resp, body = s.do(t, "PATCH", "/api/v1/users/updateMe", token, map[string]string{"name": "Laura W", "role": "admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "Laura W", updated["name"])
	assert.Equal(t, "user", updated["role"])

	resp, body = s.do(t, "POST", "/api/v1/users/forgotPassword", "", map[string]string{"email": "laura@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Token sent to email!", body["message"])
	link := s.mail.last()
	resetToken := link[strings.LastIndex(link, "/")+1:]

	resp, body = s.do(t, "PATCH", "/api/v1/users/resetPassword/"+resetToken, "",
		map[string]string{"password": "newpass123", "passwordConfirm": "newpass123"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, _ = s.do(t, "POST", "/api/v1/users/login", "", map[string]string{"email": "laura@example.com", "password": "newpass123"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, "PATCH", "/api/v1/users/resetPassword/"+resetToken, "",
		map[string]string{"password": "again1234", "passwordConfirm": "again1234"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Token is invalid or has expired", body["message"])

	resp, _ = s.do(t, "GET", "/api/v1/users/logout", "", nil)
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.CookieName {
			assert.Equal(t, middleware.LoggedOut, ck.Value)
		}
	}
}

func TestToursAndReviews(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signUp(t, "Regular User", "user@example.com")
	adminToken := s.signUp(t, "Admin User", "admin@example.com")
	s.promote(t, "admin@example.com", models.RoleAdmin)

	tour := map[string]any{
		"name": "The Forest Hiker", "duration": 5, "maxGroupSize": 25,
		"difficulty": "easy", "price": 397, "summary": "Breathtaking hike through the Canadian Banff National Park",
		"imageCover": "tour-1-cover.jpg",
	}
	resp, body := s.do(t, "POST", "/api/v1/tours", userToken, tour)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "You do not have permission to perform this action", body["message"])

	resp, body = s.do(t, "POST", "/api/v1/tours", adminToken, tour)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	created := dataOf(body)
	tourID := created["id"].(string)
	assert.Equal(t, "the-forest-hiker", created["slug"])

	resp, body = s.do(t, "GET", "/api/v1/tours/top-5-cheap", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["results"])

	resp, body = s.do(t, "POST", "/api/v1/tours/"+tourID+"/reviews", userToken,
		map[string]any{"review": "Loved it", "rating": 4})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, body = s.do(t, "POST", "/api/v1/tours/"+tourID+"/reviews", userToken,
		map[string]any{"review": "Twice", "rating": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "Duplicate field value")

	resp, body = s.do(t, "GET", "/api/v1/tours/"+tourID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["results"])

	resp, body = s.do(t, "GET", "/api/v1/tours/"+tourID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := dataOf(body)
	assert.EqualValues(t, 4, got["ratingsAverage"])
	assert.EqualValues(t, 1, got["ratingsQuantity"])
	assert.Len(t, got["reviews"], 1)

	resp, body = s.do(t, "GET", "/api/v1/tours/not-an-id", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid _id: not-an-id.", body["message"])

	resp, _ = s.do(t, "DELETE", "/api/v1/tours/"+tourID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAdminUserRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signUp(t, "Regular User", "user@example.com")
	adminToken := s.signUp(t, "Admin User", "admin@example.com")
	s.promote(t, "admin@example.com", models.RoleAdmin)

	resp, _ := s.do(t, "GET", "/api/v1/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, "GET", "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["results"])

	resp, body = s.do(t, "POST", "/api/v1/users", adminToken, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "This route is not defined! Please use /signup instead", body["message"])

	resp, _ = s.do(t, "DELETE", "/api/v1/users/deleteMe", userToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = s.do(t, "GET", "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["results"])
}

func TestPagesAndFallbacks(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, "GET", "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Can't find /api/v1/nope on this server!", body["message"])

	resp, body = s.do(t, "GET", "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "You are not logged in! Please log in to get access.", body["message"])

	resp, body = s.do(t, "GET", "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["raw"], "No tours to show yet.")

	resp, body = s.do(t, "GET", "/tour/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["raw"], "There is no tour with that name.")

	resp, _ = s.do(t, "GET", "/", "", nil)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestCheckoutWithoutGateway(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "Regular User", "user@example.com")

	resp, body := s.do(t, "GET", "/api/v1/bookings/checkout-session/000000000000000000000000", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No document found with that ID", body["message"])

	resp, body = s.do(t, "POST", "/webhook-checkout", "", map[string]string{"type": "checkout.session.completed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["raw"], "Webhook error")
}
