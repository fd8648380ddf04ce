package handlers

import (
	"net/http"
	"strconv"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/services"
	"github.com/gofiber/fiber/v2"
)

type TourHandler struct {
	tours *services.TourService
}

func NewTourHandler(tours *services.TourService) *TourHandler {
	return &TourHandler{tours: tours}
}

// AliasTopTours presets the query for the five best rated cheap tours.
func AliasTopTours(c *fiber.Ctx) error {
	args := c.Request().URI().QueryArgs()
	args.Set("limit", "5")
	args.Set("sort", "-ratingsAverage,price")
	args.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return c.Next()
}

func (h *TourHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tours.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return sendData(c, http.StatusOK, "stats", stats)
}

func (h *TourHandler) MonthlyPlan(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil || year < 1 {
		return apperr.BadRequest("Please provide a valid year.")
	}
	plan, err := h.tours.MonthlyPlan(c.UserContext(), year)
	if err != nil {
		return err
	}
	return sendData(c, http.StatusOK, "plan", plan)
}

func (h *TourHandler) Within(c *fiber.Ctx) error {
	distance, err := strconv.ParseFloat(c.Params("distance"), 64)
	if err != nil || distance < 0 {
		return apperr.BadRequest("Please provide a valid distance.")
	}
	tours, err := h.tours.Within(c.UserContext(), distance, c.Params("latlng"), c.Params("unit"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  statusSuccess,
		"results": len(tours),
		"data":    fiber.Map{"data": tours},
	})
}

func (h *TourHandler) Distances(c *fiber.Ctx) error {
	distances, err := h.tours.Distances(c.UserContext(), c.Params("latlng"), c.Params("unit"))
	if err != nil {
		return err
	}
	return sendOne(c, http.StatusOK, distances)
}
