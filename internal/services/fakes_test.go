package services

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/mail"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	models.PasswordCost = bcrypt.MinCost
}

var quiet = log.New(io.Discard, "", 0)

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memUsers is an in-memory UserStore running the same save steps as the
// MongoDB repository.
type memUsers struct {
	mu    sync.Mutex
	now   func() time.Time
	users map[primitive.ObjectID]models.User
	saves int
}

func newMemUsers(now func() time.Time) *memUsers {
	return &memUsers{now: now, users: map[primitive.ObjectID]models.User{}}
}

func (m *memUsers) CreateOne(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.SetID(primitive.NewObjectID())
	if err := u.BeforeSave(models.SaveOp{IsNew: true, Now: m.now()}); err != nil {
		return nil, err
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, apperr.BadRequest(`Duplicate field value: "` + u.Email + `". Please use another value!`)
		}
	}
	m.users[u.ID] = *u
	return u, nil
}

func (m *memUsers) GetOne(_ context.Context, id string, opts ...repository.ReadOption) (*models.User, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[oid]
	if !ok || !u.Active {
		return nil, apperr.NotFound("No document found with that ID")
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *memUsers) FindByResetToken(_ context.Context, hashed string, now time.Time) (*models.User, error) {
	return m.find(func(u models.User) bool {
		return u.PasswordResetToken == hashed && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
	})
}

func (m *memUsers) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Active && match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Save(_ context.Context, u *models.User, opts ...repository.SaveOption) error {
	skip := len(opts) > 0
	if err := u.BeforeSave(models.SaveOp{Now: m.now(), SkipValidation: skip}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	m.saves++
	return nil
}

func (m *memUsers) stored(id primitive.ObjectID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

type sentMail struct {
	kind string
	to   mail.Recipient
	url  string
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	resetErr error
}

func (f *fakeMailer) SendWelcome(_ context.Context, to mail.Recipient, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{"welcome", to, url})
	return nil
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to mail.Recipient, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.sent = append(f.sent, sentMail{"reset", to, url})
	return nil
}
