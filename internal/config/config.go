package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment at startup.
type Config struct {
	AppEnv  string // "development" or "production"
	BaseURL string
	Port    string

	DBDSN     string
	JWTSecret string

	AllowRegistration bool
	// AllowOverpayment controls the admin manual payment path. The
	// self-service and bulk paths always accept overpayment.
	AllowOverpayment bool

	RedisAddr string
	AMQPURL   string

	PayPalClientID string
	PayPalSecret   string
	PayPalEnv      string // "sandbox" or "live"

	StripeSecretKey string
	GeminiAPIKey    string

	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found")
	}

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		Port:              getEnv("PORT", "8080"),
		DBDSN:             os.Getenv("DB_DSN"),
		JWTSecret:         getEnv("JWT_SECRET", "dev_only_cargo_portal_secret"),
		AllowRegistration: getEnv("ALLOW_REGISTRATION", "false") == "true",
		AllowOverpayment:  getEnv("ALLOW_OVERPAYMENT", "false") == "true",
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		AMQPURL:           os.Getenv("AMQP_URL"),
		PayPalClientID:    os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:      os.Getenv("PAYPAL_SECRET"),
		PayPalEnv:         getEnv("PAYPAL_ENV", "sandbox"),
		StripeSecretKey:   os.Getenv("STRIPE_SECRET_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		RateLimitMax:      getEnvInt("RATE_LIMIT_MAX", 200),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
	return cfg
}

// Production reports whether error detail should be hidden from responses.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using %d", key, v, fallback)
		return fallback
	}
	return n
}
