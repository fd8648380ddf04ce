package handlers

import (
	"net/http"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/middleware"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	auth      *services.AuthService
	cookieTTL time.Duration
	secure    bool
}

func NewAuthHandler(auth *services.AuthService, cookieTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieTTL: cookieTTL, secure: secure}
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var in services.SignUpInput
	if err := c.BodyParser(&in); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	user, token, err := h.auth.SignUp(c.UserContext(), in, c.BaseURL()+"/me")
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusCreated, user, token)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var request struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&request); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	user, token, err := h.auth.Login(c.UserContext(), request.Email, request.Password)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusOK, user, token)
}

// Logout overwrites the session cookie with a short-lived placeholder.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    middleware.LoggedOut,
		Expires:  time.Now().Add(10 * time.Second),
		HTTPOnly: true,
		Secure:   h.secure,
	})
	return c.JSON(fiber.Map{"status": statusSuccess})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var request struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.BodyParser(&request); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	base := c.BaseURL()
	err := h.auth.ForgotPassword(c.UserContext(), request.Email, func(token string) string {
		return base + "/api/v1/users/resetPassword/" + token
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": statusSuccess, "message": "Token sent to email!"})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var request struct {
		Password        string `json:"password" form:"password"`
		PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
	}
	if err := c.BodyParser(&request); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	user, token, err := h.auth.ResetPassword(c.UserContext(), c.Params("token"), request.Password, request.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusOK, user, token)
}

func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	var request struct {
		PasswordCurrent string `json:"passwordCurrent" form:"passwordCurrent"`
		Password        string `json:"password" form:"password"`
		PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
	}
	if err := c.BodyParser(&request); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	me := middleware.CurrentUser(c)
	user, token, err := h.auth.UpdatePassword(c.UserContext(), me.ID.Hex(),
		request.PasswordCurrent, request.Password, request.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendToken(c, http.StatusOK, user, token)
}

// sendToken sets the session cookie and returns the token with the user.
func (h *AuthHandler) sendToken(c *fiber.Ctx, status int, user *models.User, token string) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Expires:  time.Now().Add(h.cookieTTL),
		HTTPOnly: true,
		Secure:   h.secure,
	})
	return c.Status(status).JSON(fiber.Map{
		"status": statusSuccess,
		"token":  token,
		"data":   fiber.Map{"user": user},
	})
}
