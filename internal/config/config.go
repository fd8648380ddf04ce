package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Env  string
	Port string

	MongoURI     string
	DatabaseName string

	JWTSecret        string
	JWTExpiresIn     time.Duration
	JWTCookieExpires time.Duration

	EmailHost     string
	EmailPort     int
	EmailUsername string
	EmailPassword string
	EmailFrom     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	PhotoBucket    string

	StripeSecretKey     string
	StripeWebhookSecret string

	RedisAddr     string
	RedisPassword string
	NatsURL       string

	RateLimitMax    int
	RateLimitWindow time.Duration
}

// IsProduction gates secure cookies and error detail.
func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Env:            get("APP_ENV", EnvDevelopment),
		Port:           get("PORT", "3000"),
		DatabaseName:   get("DATABASE_NAME", "natours"),
		JWTSecret:      getenv("JWT_SECRET"),
		EmailHost:      get("EMAIL_HOST", "localhost"),
		EmailUsername:  getenv("EMAIL_USERNAME"),
		EmailPassword:  getenv("EMAIL_PASSWORD"),
		EmailFrom:      get("EMAIL_FROM", "Natours <hello@natours.io>"),
		MinioEndpoint:  getenv("MINIO_ENDPOINT"),
		MinioAccessKey: get("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: get("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    get("MINIO_USE_SSL", "false") == "true",
		PhotoBucket:    get("MINIO_PHOTO_BUCKET", "user-photos"),

		StripeSecretKey:     getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: getenv("STRIPE_WEBHOOK_SECRET"),

		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		NatsURL:       getenv("NATS_URL"),
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return nil, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Env)
	}

	cfg.MongoURI = strings.Replace(get("DATABASE", "mongodb://localhost:27017"), "<PASSWORD>", getenv("DATABASE_PASSWORD"), 1)

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	var err error
	if cfg.JWTExpiresIn, err = ParseDuration(get("JWT_EXPIRES_IN", "90d")); err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}

	cookieDays, err := strconv.Atoi(get("JWT_COOKIE_EXPIRES_IN", "90"))
	if err != nil || cookieDays <= 0 {
		return nil, fmt.Errorf("JWT_COOKIE_EXPIRES_IN must be a positive number of days")
	}
	cfg.JWTCookieExpires = time.Duration(cookieDays) * 24 * time.Hour

	if cfg.EmailPort, err = strconv.Atoi(get("EMAIL_PORT", "25")); err != nil {
		return nil, fmt.Errorf("EMAIL_PORT: %w", err)
	}

	if cfg.RateLimitMax, err = strconv.Atoi(get("RATE_LIMIT_MAX", "100")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_MAX: %w", err)
	}
	if cfg.RateLimitWindow, err = ParseDuration(get("RATE_LIMIT_WINDOW", "1h")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW: %w", err)
	}

	return cfg, nil
}

// ParseDuration accepts Go durations plus a whole-day suffix such as "90d".
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", s)
	}
	return d, nil
}
