package app

import (
	"io"
	"log/slog"
	"strings"

	"filmsearch/searchservice/internal/providers/omdb"
	"filmsearch/searchservice/internal/search"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(w io.Writer, levelRaw, formatRaw string) *slog.Logger {
	options := &slog.HandlerOptions{Level: ParseLogLevel(levelRaw)}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}

func ParseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewSearchService wires the catalog client and the search service from cfg.
func NewSearchService(cfg Config, logger *slog.Logger) (*search.Service, error) {
	client, err := omdb.NewClient(omdb.Config{
		APIKey:      cfg.CatalogAPIKey,
		BaseURL:     cfg.CatalogBaseURL,
		Timeout:     cfg.CatalogTimeout,
		UserAgent:   cfg.UserAgent,
		PosterHosts: cfg.PosterHosts,
	})
	if err != nil {
		return nil, err
	}
	return search.NewService(client,
		search.WithCacheSize(cfg.CacheEntries),
		search.WithDebounce(cfg.Debounce),
		search.WithPacing(cfg.Pacing),
		search.WithCooldown(cfg.Cooldown),
		search.WithLogger(logger),
		search.WithVerboseErrors(cfg.VerboseErrors),
	), nil
}
