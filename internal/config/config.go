package config

import (
	"fmt"
	"net/url"
	"slices"
	"time"

	pkgconfig "github.com/utafrali/EcommerceGo/storefront/pkg/config"
)

// Config holds all configuration for the storefront wishlist service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`

	// Redis (guest wishlists)
	RedisAddr string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int           `env:"REDIS_DB" envDefault:"0"`
	GuestTTL  time.Duration `env:"WISHLIST_GUEST_TTL" envDefault:"720h"`

	// Remote wishlist API (authenticated wishlists)
	WishlistAPIURL     string        `env:"WISHLIST_API_URL" envDefault:"http://localhost:8001/api/v1"`
	APITimeout         time.Duration `env:"WISHLIST_API_TIMEOUT" envDefault:"10s"`
	APIMaxRetries      int           `env:"WISHLIST_API_MAX_RETRIES" envDefault:"2"`
	BreakerTimeout     time.Duration `env:"WISHLIST_API_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailRatio   float64       `env:"WISHLIST_API_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests uint32        `env:"WISHLIST_API_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me-in-production"`

	// Sessions
	SyncStatusResetDelay time.Duration `env:"WISHLIST_SYNC_STATUS_RESET_DELAY" envDefault:"3s"`
	SessionIdleTTL       time.Duration `env:"WISHLIST_SESSION_IDLE_TTL" envDefault:"30m"`

	// Kafka; empty disables migration events
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// pprof
	PprofEnabled bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofCIDRs   []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, vars); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.WishlistAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid wishlist API URL: %q", c.WishlistAPIURL)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.Environment == "production" && c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.GuestTTL < 0 {
		return fmt.Errorf("invalid guest TTL: %s", c.GuestTTL)
	}
	if c.APIMaxRetries < 0 {
		return fmt.Errorf("invalid wishlist API retry count: %d", c.APIMaxRetries)
	}
	if c.BreakerFailRatio <= 0 || c.BreakerFailRatio > 1 {
		return fmt.Errorf("invalid breaker failure ratio: %v", c.BreakerFailRatio)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if slices.Contains(c.CORSAllowedOrigins, "*") {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list origins explicitly, sessions are credentialed")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL sample rate: %v", c.OTELSampleRate)
	}
	return nil
}
