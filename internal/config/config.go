package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/imrishuroy/storefront-checkout/internal/session"
)

// Session store backends
const (
	StoreDynamoDB = session.BackendDynamoDB
	StoreRedis    = session.BackendRedis
	StoreMemory   = session.BackendMemory
)

// maxTrackDelay is the longest delay SQS allows on a single message.
const maxTrackDelay = 900 * time.Second

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	AWSRegion   string
	Commerce    CommerceConfig
	Pricing     PricingConfig
	Session     SessionConfig
	Events      EventsConfig
	Tracking    TrackingConfig
}

// CommerceConfig is used to call the remote commerce API
type CommerceConfig struct {
	BaseURL      string        // COMMERCE_API_URL
	Timeout      time.Duration // COMMERCE_TIMEOUT
	ServiceToken string        // COMMERCE_SERVICE_TOKEN: worker credential for order lookups
}

type PricingConfig struct {
	FreeDeliveryThreshold int64
	FlatDeliveryFee       int64
}

// SessionConfig selects where order references are persisted
type SessionConfig struct {
	Store     string // SESSION_STORE: dynamodb, redis or memory
	Table     string // SESSIONS_TABLE
	TTL       time.Duration
	RedisAddr string
}

type EventsConfig struct {
	QueueURL         string // CHECKOUT_EVENTS_QUEUE_URL; empty disables publishing
	MetricsNamespace string // METRICS_NAMESPACE; empty disables metrics
}

type TrackingConfig struct {
	MaxAttempts int
	Delay       time.Duration
	LedgerTable string // IDEMPOTENCY_TABLE: worker delivery dedup, same backend as SESSION_STORE
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool { return strings.EqualFold(c.Environment, "production") }

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigName(".env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("COMMERCE_TIMEOUT", "15s")
	v.SetDefault("FREE_DELIVERY_THRESHOLD", 5000)
	v.SetDefault("FLAT_DELIVERY_FEE", 500)
	v.SetDefault("SESSION_STORE", StoreDynamoDB)
	v.SetDefault("SESSIONS_TABLE", "checkout_sessions")
	v.SetDefault("SESSION_TTL", "48h")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("METRICS_NAMESPACE", "StorefrontCheckout")
	v.SetDefault("TRACK_MAX_ATTEMPTS", 96)
	v.SetDefault("TRACK_DELAY", "15m")
	v.SetDefault("IDEMPOTENCY_TABLE", "checkout_deliveries")

	v.AutomaticEnv()

	// .env is optional; env vars win
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper(v, "PORT"),
		Environment: getEnvOrViper(v, "ENVIRONMENT"),
		LogLevel:    getEnvOrViper(v, "LOG_LEVEL"),
		AWSRegion:   getEnvOrViper(v, "AWS_REGION"),
		Commerce: CommerceConfig{
			BaseURL:      strings.TrimSpace(getEnvOrViper(v, "COMMERCE_API_URL")),
			Timeout:      v.GetDuration("COMMERCE_TIMEOUT"),
			ServiceToken: strings.TrimSpace(getEnvOrViper(v, "COMMERCE_SERVICE_TOKEN")),
		},
		Pricing: PricingConfig{
			FreeDeliveryThreshold: v.GetInt64("FREE_DELIVERY_THRESHOLD"),
			FlatDeliveryFee:       v.GetInt64("FLAT_DELIVERY_FEE"),
		},
		Session: SessionConfig{
			Store:     strings.ToLower(strings.TrimSpace(getEnvOrViper(v, "SESSION_STORE"))),
			Table:     getEnvOrViper(v, "SESSIONS_TABLE"),
			TTL:       v.GetDuration("SESSION_TTL"),
			RedisAddr: getEnvOrViper(v, "REDIS_ADDR"),
		},
		Events: EventsConfig{
			QueueURL:         strings.TrimSpace(getEnvOrViper(v, "CHECKOUT_EVENTS_QUEUE_URL")),
			MetricsNamespace: strings.TrimSpace(getEnvOrViper(v, "METRICS_NAMESPACE")),
		},
		Tracking: TrackingConfig{
			MaxAttempts: v.GetInt("TRACK_MAX_ATTEMPTS"),
			Delay:       v.GetDuration("TRACK_DELAY"),
			LedgerTable: getEnvOrViper(v, "IDEMPOTENCY_TABLE"),
		},
	}
	if cfg.Tracking.Delay > maxTrackDelay {
		cfg.Tracking.Delay = maxTrackDelay
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Commerce.BaseURL == "" {
		return fmt.Errorf("COMMERCE_API_URL is required")
	}
	if c.Commerce.Timeout <= 0 {
		return fmt.Errorf("COMMERCE_TIMEOUT must be positive")
	}
	if c.Pricing.FreeDeliveryThreshold < 0 || c.Pricing.FlatDeliveryFee < 0 {
		return fmt.Errorf("FREE_DELIVERY_THRESHOLD and FLAT_DELIVERY_FEE must not be negative")
	}
	switch c.Session.Store {
	case StoreDynamoDB, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE must be one of dynamodb, redis, memory; got %q", c.Session.Store)
	}
	if c.Tracking.MaxAttempts < 1 {
		return fmt.Errorf("TRACK_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnvOrViper(v *viper.Viper, key string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return v.GetString(key)
}
