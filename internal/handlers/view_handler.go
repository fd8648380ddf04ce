package handlers

import (
	"bytes"
	"errors"
	"net/url"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/middleware"
	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/arzan03/TourBooking/internal/services"
	"github.com/arzan03/TourBooking/internal/views"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

var alerts = map[string]string{
	"booking": "Your booking was successful! Please check your email for a confirmation. If your booking doesn't show up here immediately, please come back later.",
}

type ViewHandler struct {
	renderer *views.Renderer
	tours    *repository.Tours
	bookings *services.BookingService
}

func NewViewHandler(renderer *views.Renderer, tours *repository.Tours, bookings *services.BookingService) *ViewHandler {
	return &ViewHandler{renderer: renderer, tours: tours, bookings: bookings}
}

func (h *ViewHandler) Overview(c *fiber.Ctx) error {
	page, err := h.tours.GetAll(c.UserContext(), url.Values{}, nil)
	if err != nil {
		return err
	}
	return h.render(c, "overview", &views.TemplateData{Title: "All Tours", Tours: page.Data})
}

func (h *ViewHandler) Tour(c *fiber.Ctx) error {
	tour, err := h.tours.FindOne(c.UserContext(), bson.M{"slug": c.Params("slug")},
		repository.WithPopulate("guides", "reviews"))
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("There is no tour with that name.")
	}
	if err != nil {
		return err
	}
	return h.render(c, "tour", &views.TemplateData{Title: tour.Name + " Tour", Tour: tour})
}

func (h *ViewHandler) Login(c *fiber.Ctx) error {
	return h.render(c, "login", &views.TemplateData{Title: "Log into your account"})
}

func (h *ViewHandler) SignUp(c *fiber.Ctx) error {
	return h.render(c, "signup", &views.TemplateData{Title: "Create your account"})
}

func (h *ViewHandler) Account(c *fiber.Ctx) error {
	return h.render(c, "account", &views.TemplateData{Title: "Your account"})
}

func (h *ViewHandler) MyTours(c *fiber.Ctx) error {
	tours, err := h.bookings.MyTours(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return h.render(c, "overview", &views.TemplateData{Title: "My Tours", Tours: tours})
}

func (h *ViewHandler) render(c *fiber.Ctx, page string, data *views.TemplateData) error {
	data.User = middleware.CurrentUser(c)
	data.Alert = alerts[c.Query("alert")]

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page, data); err != nil {
		return err
	}
	c.Type("html")
	return c.Send(buf.Bytes())
}
