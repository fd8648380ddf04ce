package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arzan03/TourBooking/internal/config"
	"github.com/arzan03/TourBooking/internal/db"
	"github.com/arzan03/TourBooking/internal/events"
	"github.com/arzan03/TourBooking/internal/handlers"
	"github.com/arzan03/TourBooking/internal/mail"
	"github.com/arzan03/TourBooking/internal/payment"
	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/arzan03/TourBooking/internal/services"
	"github.com/arzan03/TourBooking/internal/storage"
	"github.com/arzan03/TourBooking/internal/views"
	"github.com/gofiber/fiber/v2"
)

const mailWorkers = 4

func main() {
	logger := log.New(os.Stdout, "[tourbooking] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatalf("failed to connect to MongoDB: %v", err)
	}
	database := client.Database(cfg.DatabaseName)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		logger.Fatalf("failed to create indexes: %v", err)
	}
	store := repository.NewStore(database, time.Now)

	// Mail
	mailer := mail.NewMailer(cfg.EmailHost, cfg.EmailPort, cfg.EmailUsername, cfg.EmailPassword, cfg.EmailFrom,
		log.New(os.Stdout, "[mail] ", log.LstdFlags))
	outbox := mail.NewOutbox(mailer, mailWorkers, log.New(os.Stdout, "[outbox] ", log.LstdFlags))

	// Photos are optional; without object storage every user keeps the default photo.
	var photos *services.PhotoService
	if cfg.MinioEndpoint != "" {
		minio, err := storage.NewMinio(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.PhotoBucket,
		})
		if err != nil {
			logger.Fatalf("failed to initialize MinIO: %v", err)
		}
		photos = services.NewPhotoService(minio, log.New(os.Stdout, "[photos] ", log.LstdFlags))
	}

	// Rate limit counters are shared through Redis when it is configured.
	var limiterStorage fiber.Storage
	if cfg.RedisAddr != "" {
		redis := storage.NewRedis(cfg.RedisAddr, cfg.RedisPassword, "limiter:")
		if err := redis.Ping(ctx); err != nil {
			logger.Fatalf("failed to connect to Redis: %v", err)
		}
		limiterStorage = redis
	}

	var publisher events.Publisher = events.Discard{}
	if cfg.NatsURL != "" {
		nc, err := events.ConnectNATS(cfg.NatsURL)
		if err != nil {
			logger.Fatalf("failed to connect to NATS: %v", err)
		}
		publisher = nc
	}

	renderer, err := views.New()
	if err != nil {
		logger.Fatalf("failed to parse templates: %v", err)
	}

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn, time.Now)
	app := handlers.NewApp(handlers.Deps{
		Config: cfg,
		Store:  store,
		Auth:   services.NewAuthService(store.Users, tokens, outbox, log.New(os.Stdout, "[auth] ", log.LstdFlags), time.Now),
		Tours:  services.NewTourService(store.Tours.Collection()),
		Bookings: services.NewBookingService(store.Tours, store.Bookings, store.Users,
			payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret), publisher,
			log.New(os.Stdout, "[bookings] ", log.LstdFlags)),
		Photos:         photos,
		Views:          renderer,
		Logger:         logger,
		LimiterStorage: limiterStorage,
		StaticDir:      "./public",
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Printf("App running on port %s (%s)...", cfg.Port, cfg.Env)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.Printf("%s received. Shutting down gracefully", sig)
	case err := <-listenErr:
		logger.Printf("UNHANDLED ERROR 💥 Shutting down: %v", err)
		exitCode = 1
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Printf("server shutdown: %v", err)
	}
	outbox.Close()
	publisher.Close()
	if limiterStorage != nil {
		_ = limiterStorage.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Printf("failed to disconnect from MongoDB: %v", err)
	}
	cancel()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	logger.Println("💥 Process terminated!")
}
