package services

import (
	"errors"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

const (
	msgInvalidToken = "Invalid token. Please log in again!"
	msgExpiredToken = "Your token has expired! Please log in again."
)

// Claims carries the user id; iat and exp come from the registered claims.
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: now}
}

func (s *TokenService) Sign(userID string) (string, error) {
	now := s.now()
	claims := Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperr.Internal("Could not sign token", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the claims.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.Unauthorized(msgExpiredToken)
	case err != nil:
		return nil, apperr.Unauthorized(msgInvalidToken)
	case claims.ID == "" || claims.IssuedAt == nil:
		return nil, apperr.Unauthorized(msgInvalidToken)
	}
	return claims, nil
}
