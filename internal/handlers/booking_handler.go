package handlers

import (
	"log"
	"net/http"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/middleware"
	"github.com/arzan03/TourBooking/internal/services"
	"github.com/gofiber/fiber/v2"
)

const stripeSignatureHeader = "Stripe-Signature"

type BookingHandler struct {
	bookings *services.BookingService
	logger   *log.Logger
}

func NewBookingHandler(bookings *services.BookingService, logger *log.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

func (h *BookingHandler) CheckoutSession(c *fiber.Ctx) error {
	session, err := h.bookings.Checkout(c.UserContext(), middleware.CurrentUser(c), c.Params("tourId"), c.BaseURL())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": statusSuccess, "session": session})
}

// Webhook receives the payment provider's callback. It answers in plain
// text since the caller is not a browser.
func (h *BookingHandler) Webhook(c *fiber.Ctx) error {
	err := h.bookings.CompleteCheckout(c.UserContext(), c.Body(), c.Get(stripeSignatureHeader))
	if err == nil {
		return c.JSON(fiber.Map{"received": true})
	}

	status := http.StatusInternalServerError
	if e, ok := apperr.As(err); ok {
		status = e.Status
	}
	h.logger.Printf("webhook rejected: %v", err)
	return c.Status(status).SendString("Webhook error: " + err.Error())
}
