package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable the process needs. It is built once in Load
// and never mutated afterwards; components receive it (or slices of it) by
// pointer at construction time.
type Config struct {
	Profile  string
	HTTPAddr string

	DatabaseDSN string
	RedisAddr   string

	JWTIssuer       string
	JWTSecret       string
	RefreshPepper   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	AuthRateLimitRPM int
	APIRateLimitRPM  int

	ReapInterval   time.Duration
	SearchCacheTTL time.Duration

	CookieSecure bool

	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELEnvironment           string
	OTELMetricsExportInterval time.Duration

	ShutdownTimeout time.Duration
}

// Load reads the configuration from the environment and validates it.
// Secrets have no defaults: a process without a signing secret or a refresh
// pepper must not come up.
func Load() (*Config, error) {
	cfg := &Config{
		Profile:  envString("APP_PROFILE", "local"),
		HTTPAddr: envString("HTTP_ADDR", ":8080"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		JWTIssuer:     envString("JWT_ISSUER", "devfolio"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RefreshPepper: os.Getenv("REFRESH_PEPPER"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		CookieSecure: envBool("COOKIE_SECURE", false),

		OTELMetricsEnabled:       envBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:        envBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:          envBool("OTEL_LOGS_ENABLED", false),
		OTELExporterOTLPEndpoint: envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:          envString("OTEL_SERVICE_NAME", "devfolio-server"),
		OTELEnvironment:          envString("OTEL_ENVIRONMENT", "local"),
	}

	var err error
	if cfg.AccessTokenTTL, err = envDuration("ACCESS_TOKEN_TTL", 30*time.Minute); err != nil {
		return nil, fmt.Errorf("parse ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.RefreshTokenTTL, err = envDuration("REFRESH_TOKEN_TTL", 14*24*time.Hour); err != nil {
		return nil, fmt.Errorf("parse REFRESH_TOKEN_TTL: %w", err)
	}
	if cfg.ReapInterval, err = envDuration("REFRESH_REAP_INTERVAL", time.Hour); err != nil {
		return nil, fmt.Errorf("parse REFRESH_REAP_INTERVAL: %w", err)
	}
	if cfg.SearchCacheTTL, err = envDuration("SEARCH_CACHE_TTL", 30*time.Second); err != nil {
		return nil, fmt.Errorf("parse SEARCH_CACHE_TTL: %w", err)
	}
	if cfg.OTELMetricsExportInterval, err = envDuration("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second); err != nil {
		return nil, fmt.Errorf("parse OTEL_METRICS_EXPORT_INTERVAL: %w", err)
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("parse SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.AuthRateLimitRPM, err = envInt("AUTH_RATE_LIMIT_RPM", 30); err != nil {
		return nil, fmt.Errorf("parse AUTH_RATE_LIMIT_RPM: %w", err)
	}
	if cfg.APIRateLimitRPM, err = envInt("API_RATE_LIMIT_RPM", 600); err != nil {
		return nil, fmt.Errorf("parse API_RATE_LIMIT_RPM: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		recordConfigValidationEvent(context.Background(), cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.Profile, "success", "none")
	return cfg, nil
}

// Validate enforces the startup invariants. Missing token secrets are fatal:
// every other failure mode in the auth path degrades to 401, but a process
// that minted unsigned or unpeppered tokens would be silently broken.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if strings.TrimSpace(c.RefreshPepper) == "" {
		errs = append(errs, errors.New("REFRESH_PEPPER is required"))
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validate config: %w", errors.Join(errs...))
	}
	return nil
}

// GoogleLoginEnabled reports whether the OAuth collaborator is configured.
// The endpoints stay registered either way; without credentials they answer 404.
func (c *Config) GoogleLoginEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
