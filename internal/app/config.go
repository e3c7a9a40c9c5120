package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"filmsearch/searchservice/internal/domain"
)

const defaultCatalogBaseURL = "https://www.omdbapi.com/"

type Config struct {
	HTTPAddr       string
	LogLevel       string
	LogFormat      string
	Environment    string
	UserAgent      string
	CatalogAPIKey  string
	CatalogBaseURL string
	CatalogTimeout time.Duration
	CacheEntries   int
	Debounce       time.Duration
	Pacing         time.Duration
	Cooldown       time.Duration
	PosterHosts    []string
	RateLimitRPS   int
	OTLPEndpoint   string
	TraceRatio     float64
	VerboseErrors  bool
}

func LoadConfig() Config {
	cfg := Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8090"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		Environment:    strings.ToLower(getEnv("APP_ENV", "production")),
		UserAgent:      getEnv("SEARCH_USER_AGENT", "filmsearch/1.0"),
		CatalogAPIKey:  getEnv("CATALOG_API_KEY", getEnv("OMDB_API_KEY", "")),
		CatalogBaseURL: getEnv("CATALOG_BASE_URL", getEnv("OMDB_API_URL", defaultCatalogBaseURL)),
		CatalogTimeout: time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 10)) * time.Second,
		CacheEntries:   getEnvInt("SEARCH_CACHE_MAX_ENTRIES", 50),
		Debounce:       time.Duration(getEnvInt("SEARCH_DEBOUNCE_MS", 500)) * time.Millisecond,
		Pacing:         time.Duration(getEnvInt("DISCOVERY_PACING_MS", 200)) * time.Millisecond,
		Cooldown:       time.Duration(getEnvInt("CATALOG_COOLDOWN_SECONDS", 30)) * time.Second,
		PosterHosts:    getEnvList("POSTER_ALLOWED_HOSTS"),
		RateLimitRPS:   getEnvInt("HTTP_RATE_LIMIT_RPS", 20),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceRatio:     getEnvFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
	}
	cfg.VerboseErrors = getEnvBool("LOG_PROVIDER_ERRORS", cfg.Development())
	return cfg
}

func (c Config) Development() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Validate fails fast on settings the catalog client cannot work without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CatalogAPIKey) == "" {
		return domain.NewCatalogError(domain.ErrConfiguration, 0, "CATALOG_API_KEY is not set", nil)
	}
	if !strings.HasPrefix(c.CatalogBaseURL, "http://") && !strings.HasPrefix(c.CatalogBaseURL, "https://") {
		return domain.NewCatalogError(domain.ErrConfiguration, 0, fmt.Sprintf("CATALOG_BASE_URL %q is not an http(s) URL", c.CatalogBaseURL), nil)
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvList splits a comma separated value, dropping blanks. Unset yields nil.
func getEnvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if value := strings.ToLower(strings.TrimSpace(part)); value != "" {
			out = append(out, value)
		}
	}
	return out
}
