package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/middleware"
	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/arzan03/TourBooking/internal/services"
	"github.com/gofiber/fiber/v2"
)

// Only these fields may be changed through updateMe.
var selfEditable = []string{"name", "email"}

type UserHandler struct {
	users  *repository.Users
	photos *services.PhotoService
}

func NewUserHandler(users *repository.Users, photos *services.PhotoService) *UserHandler {
	return &UserHandler{users: users, photos: photos}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.users.GetOne(c.UserContext(), middleware.CurrentUser(c).ID.Hex())
	if err != nil {
		return err
	}
	return sendOne(c, http.StatusOK, user)
}

// UpdateMe changes the caller's name, email or photo. The photo arrives as
// a multipart file and is stored in object storage.
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	me := middleware.CurrentUser(c)

	fields, err := h.selfFields(c)
	if err != nil {
		return err
	}
	if _, ok := fields["password"]; ok {
		return apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}
	if _, ok := fields["passwordConfirm"]; ok {
		return apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}

	patch := make(map[string]any, len(selfEditable)+1)
	for _, k := range selfEditable {
		if v, ok := fields[k]; ok {
			patch[k] = v
		}
	}

	var photo string
	if fh, err := c.FormFile("photo"); err == nil {
		if h.photos == nil {
			return apperr.Internal("photo storage is not configured", nil)
		}
		photo, err = h.photos.Upload(c.UserContext(), me.ID.Hex(), fh)
		if err != nil {
			return err
		}
		patch["photo"] = photo
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return apperr.Internal("failed to encode update", err)
	}
	updated, err := h.users.UpdateOne(c.UserContext(), me.ID.Hex(), body)
	if err != nil {
		if photo != "" {
			h.photos.Discard(photo)
		}
		return err
	}
	if photo != "" && me.Photo != photo {
		h.photos.Discard(me.Photo)
	}
	return sendData(c, http.StatusOK, "user", updated)
}

func (h *UserHandler) DeleteMe(c *fiber.Ctx) error {
	if err := h.users.Deactivate(c.UserContext(), middleware.CurrentUser(c).ID.Hex()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// CreateUser points admins at signup; accounts are never created here.
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": "This route is not defined! Please use /signup instead",
	})
}

// Photo redirects to a short-lived link for an uploaded user photo. The
// bundled default photo falls through to the static files.
func (h *UserHandler) Photo(c *fiber.Ctx) error {
	key := c.Params("key")
	if h.photos == nil || !services.IsStoredPhoto(key) {
		return c.Next()
	}
	link, err := h.photos.URL(c.UserContext(), key)
	if err != nil {
		return err
	}
	return c.Redirect(link, http.StatusFound)
}

// selfFields reads the submitted fields from JSON, urlencoded or multipart
// bodies.
func (h *UserHandler) selfFields(c *fiber.Ctx) (map[string]any, error) {
	fields := map[string]any{}
	contentType := c.Get(fiber.HeaderContentType)
	switch {
	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		if len(c.Body()) == 0 {
			return fields, nil
		}
		if err := json.Unmarshal(c.Body(), &fields); err != nil {
			return nil, apperr.BadRequest("Invalid request body")
		}
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, apperr.BadRequest("Invalid multipart form")
		}
		for k, v := range form.Value {
			if len(v) > 0 {
				fields[k] = v[len(v)-1]
			}
		}
	default:
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			fields[string(k)] = string(v)
		})
	}
	return fields, nil
}
