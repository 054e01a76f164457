package config

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	BackendBaseURL     string
	TenantID           string
	RedisURL           string
	SessionSecret      string
	SessionTTL         time.Duration
	SessionCookieName  string
	CookieDomain       string
	CookieSecure       bool
	CookieSameSite     http.SameSite
	CORSAllowedOrigins []string

	BackendTimeout     time.Duration
	CollectionCacheTTL time.Duration
	SearchDebounce     time.Duration
	DefaultPageSize    int
	MaxPageSize        int
	CartTTL            time.Duration
	IdempotencyTTL     time.Duration

	StorageRegion        string
	StorageBucketImages  string
	StorageBucketLogos   string
	StoragePublicBaseURL string

	PageBuilderBaseURL   string
	PageBuilderProjectID string
	PageBuilderToken     string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		BackendBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("BACKEND_BASE_URL")), "/"),
		TenantID:           strings.TrimSpace(k.String("TENANT_ID")),
		RedisURL:           k.String("REDIS_URL"),
		SessionSecret:      k.String("SESSION_SECRET"),
		SessionTTL:         parseDuration(k.String("SESSION_TTL"), "24h"),
		SessionCookieName:  valueOrDefault(k.String("SESSION_COOKIE_NAME"), "sf_session"),
		CookieDomain:       strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:       parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite:     parseSameSite(k.String("COOKIE_SAMESITE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		BackendTimeout:     parseDuration(k.String("BACKEND_TIMEOUT"), "10s"),
		CollectionCacheTTL: parseDuration(k.String("COLLECTION_CACHE_TTL"), "30s"),
		SearchDebounce:     parseDuration(k.String("SEARCH_DEBOUNCE"), "300ms"),
		DefaultPageSize:    parseInt(k.String("DEFAULT_PAGE_SIZE"), 10),
		MaxPageSize:        parseInt(k.String("MAX_PAGE_SIZE"), 100),
		CartTTL:            parseDuration(k.String("CART_TTL"), "12h"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),

		StorageRegion:        valueOrDefault(k.String("STORAGE_REGION"), "us-east-1"),
		StorageBucketImages:  valueOrDefault(k.String("STORAGE_BUCKET_IMAGES"), "productos"),
		StorageBucketLogos:   valueOrDefault(k.String("STORAGE_BUCKET_LOGOS"), "tiendas"),
		StoragePublicBaseURL: strings.TrimRight(strings.TrimSpace(k.String("STORAGE_PUBLIC_BASE_URL")), "/"),

		PageBuilderBaseURL:   strings.TrimRight(strings.TrimSpace(k.String("PAGEBUILDER_BASE_URL")), "/"),
		PageBuilderProjectID: strings.TrimSpace(k.String("PAGEBUILDER_PROJECT_ID")),
		PageBuilderToken:     k.String("PAGEBUILDER_TOKEN"),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.BackendBaseURL == "" {
		return nil, errors.New("BACKEND_BASE_URL is required")
	}
	if cfg.TenantID == "" {
		return nil, errors.New("TENANT_ID is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func splitAndTrim(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Errorf("invalid fallback duration %q: %w", fallback, err))
	}
	return d
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	}
	return false
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
