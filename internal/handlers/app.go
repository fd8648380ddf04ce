package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/arzan03/TourBooking/internal/config"
	"github.com/arzan03/TourBooking/internal/middleware"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/arzan03/TourBooking/internal/services"
	"github.com/arzan03/TourBooking/internal/views"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const (
	apiBodyLimit   = 10 * 1024
	uploadLimit    = 8 * 1024 * 1024
	requestTimeout = 30 * time.Second

	contentSecurityPolicy = "default-src 'self'; script-src 'self' https://js.stripe.com; " +
		"frame-src https://js.stripe.com; img-src 'self' data: https:; " +
		"style-src 'self' https://fonts.googleapis.com 'unsafe-inline'; font-src 'self' https://fonts.gstatic.com"
)

// Deps is everything the HTTP layer serves from.
type Deps struct {
	Config   *config.Config
	Store    *repository.Store
	Auth     *services.AuthService
	Tours    *services.TourService
	Bookings *services.BookingService
	Photos   *services.PhotoService
	Views    *views.Renderer
	Logger   *log.Logger

	// LimiterStorage shares rate limit counters between instances. Nil
	// keeps them in process memory.
	LimiterStorage fiber.Storage
	// StaticDir serves images, CSS and scripts when set.
	StaticDir string
}

// NewApp builds the Fiber application with every route mounted.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "TourBooking",
		BodyLimit:    uploadLimit,
		ErrorHandler: ErrorHandler(d.Config.IsProduction(), d.Views, d.Logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(helmet.New(helmet.Config{ContentSecurityPolicy: contentSecurityPolicy}))
	app.Use(cors.New())
	if !d.Config.IsProduction() {
		app.Use(fiberlogger.New())
	}
	app.Use(withTimeout(requestTimeout))

	// The webhook needs the raw body, so it sits outside the API limits.
	bookingHandler := NewBookingHandler(d.Bookings, d.Logger)
	app.Post("/webhook-checkout", bookingHandler.Webhook)

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        d.Config.RateLimitMax,
		Expiration: d.Config.RateLimitWindow,
		Storage:    d.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"status":  "fail",
				"message": "Too many requests from this IP, please try again in an hour!",
			})
		},
	}), middleware.BodyLimit(apiBodyLimit))
	v1 := api.Group("/v1")

	protect := middleware.Protect(d.Auth)
	userHandler := NewUserHandler(d.Store.Users, d.Photos)
	registerTourRoutes(v1, d, protect)
	registerUserRoutes(v1, d, protect, userHandler)
	registerReviewRoutes(v1, d, protect)
	registerBookingRoutes(v1, d, protect, bookingHandler)

	app.Get("/img/users/:key", userHandler.Photo)
	if d.StaticDir != "" {
		app.Static("/", d.StaticDir)
	}
	if d.Views != nil {
		registerViewRoutes(app, d, protect)
	}

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(http.StatusNotFound, "Can't find "+c.OriginalURL()+" on this server!")
	})
	return app
}

func registerTourRoutes(r fiber.Router, d Deps, protect fiber.Handler) {
	h := NewTourHandler(d.Tours)
	editors := middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide)

	tours := r.Group("/tours")
	tours.Get("/top-5-cheap", AliasTopTours, GetAll[models.Tour](d.Store.Tours, nil))
	tours.Get("/tour-stats", h.Stats)
	tours.Get("/monthly-plan/:year", protect,
		middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide), h.MonthlyPlan)
	tours.Get("/tours-within/:distance/center/:latlng/unit/:unit", h.Within)
	tours.Get("/distances/:latlng/unit/:unit", h.Distances)

	tours.Get("/:tourId/reviews", GetAll[models.Review](d.Store.Reviews, TourScope))
	tours.Post("/:tourId/reviews", protect, middleware.RestrictTo(models.RoleUser),
		CreateOne[models.Review](d.Store.Reviews, SetTourUserIDs))

	tours.Get("/", GetAll[models.Tour](d.Store.Tours, nil))
	tours.Post("/", protect, editors, CreateOne[models.Tour](d.Store.Tours, nil))
	tours.Get("/:id", GetOne[models.Tour](d.Store.Tours, repository.WithPopulate("guides", "reviews")))
	tours.Patch("/:id", protect, editors, UpdateOne[models.Tour](d.Store.Tours))
	tours.Delete("/:id", protect, editors, DeleteOne[models.Tour](d.Store.Tours))
}

func registerUserRoutes(r fiber.Router, d Deps, protect fiber.Handler, h *UserHandler) {
	auth := NewAuthHandler(d.Auth, d.Config.JWTCookieExpires, d.Config.IsProduction())
	adminOnly := middleware.RestrictTo(models.RoleAdmin)

	users := r.Group("/users")
	users.Post("/signup", auth.SignUp)
	users.Post("/login", auth.Login)
	users.Get("/logout", auth.Logout)
	users.Post("/forgotPassword", auth.ForgotPassword)
	users.Patch("/resetPassword/:token", auth.ResetPassword)

	users.Patch("/updateMyPassword", protect, auth.UpdatePassword)
	users.Get("/me", protect, h.GetMe)
	users.Patch("/updateMe", protect, h.UpdateMe)
	users.Delete("/deleteMe", protect, h.DeleteMe)

	users.Get("/", protect, adminOnly, GetAll[models.User](d.Store.Users, nil))
	users.Post("/", protect, adminOnly, h.CreateUser)
	users.Get("/:id", protect, adminOnly, GetOne[models.User](d.Store.Users))
	users.Patch("/:id", protect, adminOnly, UpdateOne[models.User](d.Store.Users))
	users.Delete("/:id", protect, adminOnly, DeleteOne[models.User](d.Store.Users))
}

func registerReviewRoutes(r fiber.Router, d Deps, protect fiber.Handler) {
	authors := middleware.RestrictTo(models.RoleUser, models.RoleAdmin)

	reviews := r.Group("/reviews", protect)
	reviews.Get("/", GetAll[models.Review](d.Store.Reviews, nil))
	reviews.Post("/", middleware.RestrictTo(models.RoleUser), CreateOne[models.Review](d.Store.Reviews, SetTourUserIDs))
	reviews.Get("/:id", GetOne[models.Review](d.Store.Reviews))
	reviews.Patch("/:id", authors, UpdateOne[models.Review](d.Store.Reviews))
	reviews.Delete("/:id", authors, DeleteOne[models.Review](d.Store.Reviews))
}

func registerBookingRoutes(r fiber.Router, d Deps, protect fiber.Handler, h *BookingHandler) {
	staff := middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide)

	bookings := r.Group("/bookings", protect)
	bookings.Get("/checkout-session/:tourId", h.CheckoutSession)
	bookings.Get("/", staff, GetAll[models.Booking](d.Store.Bookings, nil))
	bookings.Post("/", staff, CreateOne[models.Booking](d.Store.Bookings, nil))
	bookings.Get("/:id", staff, GetOne[models.Booking](d.Store.Bookings))
	bookings.Patch("/:id", staff, UpdateOne[models.Booking](d.Store.Bookings))
	bookings.Delete("/:id", staff, DeleteOne[models.Booking](d.Store.Bookings))
}

func registerViewRoutes(app *fiber.App, d Deps, protect fiber.Handler) {
	h := NewViewHandler(d.Views, d.Store.Tours, d.Bookings)
	loggedIn := middleware.IsLoggedIn(d.Auth)

	app.Get("/", loggedIn, h.Overview)
	app.Get("/tour/:slug", loggedIn, h.Tour)
	app.Get("/login", loggedIn, h.Login)
	app.Get("/signup", loggedIn, h.SignUp)
	app.Get("/me", protect, h.Account)
	app.Get("/my-tours", protect, h.MyTours)
}

// withTimeout bounds every store call made while serving one request.
func withTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
