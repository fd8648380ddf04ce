package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"

	DefaultPhoto = "default.jpg"

	passwordMinLength = 8
	resetTokenTTL     = 10 * time.Minute
)

// PasswordCost is the bcrypt cost used when hashing passwords.
var PasswordCost = 12

type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name                 string             `bson:"name" json:"name" validate:"required"`
	Email                string             `bson:"email" json:"email" validate:"required,email"`
	Photo                string             `bson:"photo" json:"photo"`
	Role                 string             `bson:"role" json:"role" validate:"oneof=user guide lead-guide admin"`
	Password             string             `bson:"password,omitempty" json:"-"`
	PasswordChangedAt    *time.Time         `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires *time.Time         `bson:"passwordResetExpires,omitempty" json:"-"`
	Active               bool               `bson:"active" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`

	// set through SetPassword, never persisted
	newPassword     string
	passwordConfirm string
}

var userMessages = map[string]string{
	"name.required":  "Please tell us your name!",
	"email.required": "Please provide your email",
	"email.email":    "Please provide a valid email",
	"role.oneof":     "Role is either: user, guide, lead-guide, admin",
}

func (u *User) GetID() primitive.ObjectID   { return u.ID }
func (u *User) SetID(id primitive.ObjectID) { u.ID = id }

// SetPassword stages a new plaintext password; it is checked against the
// confirmation and hashed by the next BeforeSave.
func (u *User) SetPassword(password, confirm string) {
	u.newPassword = password
	u.passwordConfirm = confirm
}

// BeforeSave normalizes, validates and hashes a staged password.
func (u *User) BeforeSave(op SaveOp) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if op.IsNew {
		if u.Role == "" {
			u.Role = RoleUser
		}
		if u.Photo == "" {
			u.Photo = DefaultPhoto
		}
		u.Active = true
		u.CreatedAt = op.Now
	}

	fields := map[string]string{}
	if !op.SkipValidation {
		var err error
		if fields, err = checkStruct(u, userMessages); err != nil {
			return err
		}
		if fields == nil {
			fields = map[string]string{}
		}
	}

	staged := u.newPassword != "" || u.passwordConfirm != ""
	if op.IsNew && !staged {
		fields["password"] = "Please provide a password"
	}
	if staged {
		if len(u.newPassword) < passwordMinLength {
			fields["password"] = fmt.Sprintf("Password must have at least %d characters", passwordMinLength)
		}
		if u.passwordConfirm == "" {
			fields["passwordConfirm"] = "Please confirm your password"
		} else if u.passwordConfirm != u.newPassword {
			fields["passwordConfirm"] = "Passwords are not the same!"
		}
	}
	if err := validationError(fields); err != nil {
		return err
	}

	if staged {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.newPassword), PasswordCost)
		if err != nil {
			return apperr.Internal("Could not hash password", err)
		}
		u.Password = string(hash)
		if !op.IsNew {
			// one second back so a token issued right after the change stays valid
			changed := op.Now.Add(-time.Second)
			u.PasswordChangedAt = &changed
		}
		u.newPassword, u.passwordConfirm = "", ""
	}

	if u.Password == "" {
		return apperr.Internal("Refusing to save a user without a password hash", nil)
	}
	return nil
}

// CorrectPassword compares a candidate against the stored hash.
func (u *User) CorrectPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate)) == nil
}

// ChangedPasswordAfter reports whether the password changed after a token
// with the given issued-at time was signed.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// CreatePasswordResetToken stores the hash of a fresh random token and its
// expiry, returning the raw token for delivery to the user.
func (u *User) CreatePasswordResetToken(now time.Time) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expires := now.Add(resetTokenTTL)
	u.PasswordResetToken = HashResetToken(token)
	u.PasswordResetExpires = &expires
	return token, nil
}

func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}

// HashResetToken is the one-way hash stored in place of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
