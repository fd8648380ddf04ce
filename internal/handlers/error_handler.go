package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/middleware"
	"github.com/arzan03/TourBooking/internal/views"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	msgUnknownError = "Something went very wrong!"
	msgTryLater     = "Please try again later."
)

// ErrorHandler turns every error returned by a handler into the API
// envelope, or into the error page for rendered routes.
func ErrorHandler(production bool, renderer *views.Renderer, logger *log.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr, operational := normalize(err)
		status := http.StatusInternalServerError
		if operational {
			status = appErr.Status
		}
		if !operational || status >= http.StatusInternalServerError {
			logger.Printf("ERROR 💥 %s %s: %v", c.Method(), c.OriginalURL(), err)
		}

		if !strings.HasPrefix(c.Path(), "/api") && renderer != nil {
			msg := msgTryLater
			if operational || !production {
				msg = messageOf(appErr, err)
			}
			return renderError(c, renderer, status, msg)
		}

		if !production {
			body := fiber.Map{
				"status":  statusText(status),
				"message": messageOf(appErr, err),
				"error":   err.Error(),
			}
			if operational {
				body["kind"] = appErr.Kind
				body["stack"] = appErr.Stack
				if len(appErr.Fields) > 0 {
					body["fields"] = appErr.Fields
				}
			}
			return c.Status(status).JSON(body)
		}

		if !operational {
			return c.Status(status).JSON(fiber.Map{"status": "error", "message": msgUnknownError})
		}
		body := fiber.Map{"status": appErr.StatusText(), "message": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		return c.Status(status).JSON(body)
	}
}

// normalize maps known driver, token and framework errors onto operational
// errors. The second result is false for anything unexpected.
func normalize(err error) (*apperr.Error, bool) {
	if e, ok := apperr.As(err); ok {
		return e, true
	}

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return &apperr.Error{Status: fe.Code, Kind: kindFor(fe.Code), Message: fe.Message}, true
	case mongo.IsDuplicateKeyError(err):
		return apperr.BadRequest("Duplicate field value. Please use another value!"), true
	case errors.Is(err, primitive.ErrInvalidHex):
		return apperr.BadRequest("Invalid _id."), true
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Unauthorized("Your token has expired! Please log in again."), true
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.Unauthorized("Invalid token. Please log in again!"), true
	}
	return nil, false
}

func kindFor(status int) apperr.Kind {
	switch status {
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized
	case http.StatusForbidden:
		return apperr.KindForbidden
	}
	if status >= http.StatusInternalServerError {
		return apperr.KindServer
	}
	return apperr.KindBadRequest
}

func statusText(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}

func messageOf(e *apperr.Error, err error) string {
	if e != nil {
		return e.Message
	}
	return err.Error()
}

func renderError(c *fiber.Ctx, renderer *views.Renderer, status int, msg string) error {
	var buf bytes.Buffer
	data := &views.TemplateData{
		Title:   "Something went wrong!",
		User:    middleware.CurrentUser(c),
		Message: msg,
	}
	if err := renderer.Render(&buf, "error", data); err != nil {
		return c.Status(status).SendString(msg)
	}
	c.Type("html")
	return c.Status(status).Send(buf.Bytes())
}
