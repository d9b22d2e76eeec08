package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port         string
	StoreBackend string
	DatabaseURL  string
	RedisAddr    string
	RedisPass    string

	JWTSecret     string // signs admin tokens
	AuthJWTSecret string // verifies customer tokens from the auth provider

	// Bootstrap admin, created at startup when missing.
	AdminEmail    string
	AdminPassword string

	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURL         string
	CORSOrigins         []string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string

	Location *time.Location
	Debug    bool
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:                get("PORT", "8080"),
		StoreBackend:        get("STORE_BACKEND", BackendPostgres),
		DatabaseURL:         get("DATABASE_URL", ""),
		RedisAddr:           get("REDIS_ADDR", ""),
		RedisPass:           get("REDIS_PASSWORD", ""),
		JWTSecret:           get("JWT_SECRET", ""),
		AuthJWTSecret:       get("AUTH_JWT_SECRET", ""),
		AdminEmail:          get("ADMIN_EMAIL", ""),
		AdminPassword:       get("ADMIN_PASSWORD", ""),
		StripeSecretKey:     get("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: get("STRIPE_WEBHOOK_SECRET", ""),
		FrontendURL:         strings.TrimRight(get("FRONTEND_URL", "http://localhost:5173"), "/"),
		SendGridAPIKey:      get("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   get("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    get("SENDGRID_FROM_NAME", "EC Fresh"),
		TwilioAccountSID:    get("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     get("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:    get("TWILIO_FROM_NUMBER", ""),
		Debug:               get("DEBUG", "") == "true",
	}

	for _, o := range strings.Split(get("CORS_ORIGINS", cfg.FrontendURL), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	loc, err := time.LoadLocation(get("STORE_TIMEZONE", "Asia/Kolkata"))
	if err != nil {
		return nil, fmt.Errorf("STORE_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL not set")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET not set")
	}
	return nil
}

func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}
