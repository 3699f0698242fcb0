// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultAccessTokenTTL      = 24 * time.Hour
	defaultRefreshTokenTTL     = 720 * time.Hour
	defaultGeminiModel         = "gemini-2.5-flash"
	defaultSessionIdleTimeout  = 2 * time.Hour
	defaultSessionSweep        = "@every 15m"
	defaultTokenPurge          = "0 0 3 * * *"
	defaultExchangeRateBaseURL = "https://api.frankfurter.app"
	defaultExchangeRateTimeout = 5 * time.Second
	defaultExchangeRateTTL     = time.Hour
	defaultServiceName         = "finance-concierge"

	minJWTSecretLength = 32
)

// Exporter names accepted by OTEL_EXPORTER.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL string
	HTTPAddr    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	GeminiAPIKey string
	GeminiModel  string

	LogLevel  string
	LogFormat string

	OTelExporter    string
	OTelServiceName string

	SessionIdleTimeout   time.Duration
	SessionSweepSchedule string
	TokenPurgeSchedule   string

	ExchangeRateBaseURL  string
	ExchangeRateTimeout  time.Duration
	ExchangeRateCacheTTL time.Duration

	TelegramBotToken string

	Timezone string
	Location *time.Location

	// Defaults holds the built-in reference data, optionally overridden by CONFIG_FILE.
	Defaults *Defaults
}

// Load reads configuration from environment variables and the optional defaults file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		HTTPAddr:         envOr("HTTP_ADDR", defaultHTTPAddr),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AccessTokenTTL:   durationOr("ACCESS_TOKEN_TTL", defaultAccessTokenTTL),
		RefreshTokenTTL:  durationOr("REFRESH_TOKEN_TTL", defaultRefreshTokenTTL),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      envOr("GEMINI_MODEL", defaultGeminiModel),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
		OTelExporter:     strings.ToLower(envOr("OTEL_EXPORTER", ExporterNone)),
		OTelServiceName:  envOr("OTEL_SERVICE_NAME", defaultServiceName),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		SessionIdleTimeout:   durationOr("SESSION_IDLE_TIMEOUT", defaultSessionIdleTimeout),
		SessionSweepSchedule: envOr("SESSION_SWEEP_SCHEDULE", defaultSessionSweep),
		TokenPurgeSchedule:   envOr("TOKEN_PURGE_SCHEDULE", defaultTokenPurge),

		ExchangeRateBaseURL:  envOr("EXCHANGE_RATE_BASE_URL", defaultExchangeRateBaseURL),
		ExchangeRateTimeout:  durationOr("EXCHANGE_RATE_TIMEOUT", defaultExchangeRateTimeout),
		ExchangeRateCacheTTL: durationOr("EXCHANGE_RATE_CACHE_TTL", defaultExchangeRateTTL),

		Timezone: envOr("APP_TIMEZONE", "UTC"),
	}

	var errs []string

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("APP_TIMEZONE %q is not a valid timezone", cfg.Timezone))
		loc = time.UTC
	}
	cfg.Location = loc

	defaults, err := LoadDefaults(os.Getenv("CONFIG_FILE"))
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.Defaults = defaults

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// LoadDatabase reads only what the migrate command needs.
func LoadDatabase() (string, *Defaults, error) {
	_ = godotenv.Load()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return "", nil, fmt.Errorf("configuration validation failed:\n  - DATABASE_URL is required")
	}

	defaults, err := LoadDefaults(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return "", nil, err
	}
	return url, defaults, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() []string {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	switch {
	case c.JWTSecret == "":
		errs = append(errs, "JWT_SECRET is required")
	case len(c.JWTSecret) < minJWTSecretLength:
		errs = append(errs, fmt.Sprintf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLPGRPC, ExporterOTLPHTTP:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of none, stdout, otlp-grpc, otlp-http", c.OTelExporter))
	}

	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, "ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}

	return errs
}

// ChatEnabled reports whether a Gemini key is configured.
func (c *Config) ChatEnabled() bool {
	return c.GeminiAPIKey != ""
}

// TelegramEnabled reports whether the Telegram relay should start.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
