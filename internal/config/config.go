package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application. Every component
// receives the values it needs at construction; nothing reads the
// environment after Load returns.
type Config struct {
	Port string

	// StripeSecretKey authenticates outbound provider API calls (pricing
	// lookups and the like). Not used by webhook verification itself.
	StripeSecretKey string

	// WebhookSecret is the shared secret the provider signs webhook
	// payloads with. Required.
	WebhookSecret string

	// SendGridAPIKey selects the primary email channel when present.
	// When empty, keys are written to the structured log for manual
	// delivery.
	SendGridAPIKey string

	// FromEmail is the sender address on license emails.
	FromEmail string

	// DatabaseURL selects the Postgres license store when present;
	// otherwise an in-process store is used.
	DatabaseURL string

	// RedisURL selects the Redis idempotency guard when present;
	// otherwise an in-process guard is used.
	RedisURL string

	// LicenseCredits is the initial credit allotment per issued key.
	LicenseCredits int

	// SignatureTolerance bounds how stale a signed timestamp may be
	// before the event is rejected as a possible replay.
	SignatureTolerance time.Duration

	// MailTimeout bounds the primary email channel call so a slow
	// provider cannot stall webhook acknowledgment.
	MailTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		StripeSecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret:      getEnv("STRIPE_WEBHOOK_SECRET", ""),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		FromEmail:          getEnv("FROM_EMAIL", "hello@sessionshq.com"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		LicenseCredits:     getEnvInt("LICENSE_CREDITS", 20),
		SignatureTolerance: time.Duration(getEnvInt("SIGNATURE_TOLERANCE", 300)) * time.Second,
		MailTimeout:        time.Duration(getEnvInt("MAIL_TIMEOUT", 10)) * time.Second,
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.LicenseCredits <= 0 {
		return nil, fmt.Errorf("LICENSE_CREDITS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
