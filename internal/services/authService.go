package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/mail"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/repository"
)

const (
	msgIncorrectCredentials = "Incorrect email or password"
	msgUserGone             = "The user belonging to this token no longer exists."
	msgPasswordChanged      = "User recently changed password! Please log in again."
	msgResetMailFailed      = "There was an error sending the email. Try again later!"
)

// UserStore is the persistence needed by authentication.
type UserStore interface {
	CreateOne(ctx context.Context, u *models.User) (*models.User, error)
	GetOne(ctx context.Context, id string, opts ...repository.ReadOption) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, hashed string, now time.Time) (*models.User, error)
	Save(ctx context.Context, u *models.User, opts ...repository.SaveOption) error
}

type Mailer interface {
	SendWelcome(ctx context.Context, to mail.Recipient, url string) error
	SendPasswordReset(ctx context.Context, to mail.Recipient, url string) error
}

type SignUpInput struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
}

type AuthService struct {
	users  UserStore
	tokens *TokenService
	mailer Mailer
	logger *log.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens *TokenService, mailer Mailer, logger *log.Logger, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{users: users, tokens: tokens, mailer: mailer, logger: logger, now: now}
}

// SignUp creates a regular user and returns it with a fresh token. The
// welcome mail links to accountURL.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput, accountURL string) (*models.User, string, error) {
	u := &models.User{Name: in.Name, Email: in.Email}
	u.SetPassword(in.Password, in.PasswordConfirm)

	created, err := s.users.CreateOne(ctx, u)
	if err != nil {
		return nil, "", err
	}
	if err := s.mailer.SendWelcome(ctx, recipient(created), accountURL); err != nil {
		s.logger.Printf("welcome email to %s failed: %v", created.Email, err)
	}
	return s.issue(created)
}

// Login checks the credentials. Unknown emails and wrong passwords fail
// the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperr.BadRequest("Please provide email and password!")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperr.Unauthorized(msgIncorrectCredentials)
	}
	if err != nil {
		return nil, "", err
	}
	if !u.CorrectPassword(password) {
		return nil, "", apperr.Unauthorized(msgIncorrectCredentials)
	}
	return s.issue(u)
}

// Resolve maps a session token to its current user.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetOne(ctx, claims.ID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindBadRequest) {
			return nil, apperr.Unauthorized(msgUserGone)
		}
		return nil, err
	}
	if u.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, apperr.Unauthorized(msgPasswordChanged)
	}
	return u, nil
}

// ForgotPassword stores a reset token and mails it. resetURL builds the
// link from the raw token. If the mail cannot be sent the token is removed
// again.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("There is no user with email address.")
	}
	if err != nil {
		return err
	}

	token, err := u.CreatePasswordResetToken(s.now())
	if err != nil {
		return apperr.Internal(msgResetMailFailed, err)
	}
	if err := s.users.Save(ctx, u, repository.SkipValidation()); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, recipient(u), resetURL(token)); err != nil {
		u.ClearPasswordReset()
		if serr := s.users.Save(ctx, u, repository.SkipValidation()); serr != nil {
			s.logger.Printf("could not roll back reset token for %s: %v", u.Email, serr)
		}
		return apperr.Internal(msgResetMailFailed, err)
	}
	return nil
}

// ResetPassword sets a new password for the owner of an unexpired token
// and logs them in.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) (*models.User, string, error) {
	u, err := s.users.FindByResetToken(ctx, models.HashResetToken(token), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperr.BadRequest("Token is invalid or has expired")
	}
	if err != nil {
		return nil, "", err
	}

	u.SetPassword(password, confirm)
	u.ClearPasswordReset()
	if err := s.users.Save(ctx, u); err != nil {
		return nil, "", err
	}
	return s.issue(u)
}

// UpdatePassword changes the password of a logged in user after checking
// the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, password, confirm string) (*models.User, string, error) {
	u, err := s.users.GetOne(ctx, userID, repository.WithHidden("password"))
	if err != nil {
		return nil, "", err
	}
	if !u.CorrectPassword(current) {
		return nil, "", apperr.Unauthorized("Your current password is wrong.")
	}

	u.SetPassword(password, confirm)
	if err := s.users.Save(ctx, u); err != nil {
		return nil, "", err
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *models.User) (*models.User, string, error) {
	token, err := s.tokens.Sign(u.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	u.Password = ""
	return u, token, nil
}

func recipient(u *models.User) mail.Recipient {
	return mail.Recipient{Name: u.Name, Email: u.Email}
}
