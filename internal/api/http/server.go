package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/sanitize"
	"filmsearch/searchservice/internal/search"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxYearPages  = 5
	maxListLimit  = 50
	defaultRPS    = 20
	cooldownRetry = "30"
)

type Server struct {
	search       *search.Service
	logger       *slog.Logger
	posterHosts  []string
	posterClient *http.Client
	posterGuard  func(context.Context, *url.URL) error
	rps          float64
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPosterHosts limits the poster proxy to hosts. Nil keeps the default
// catalog image hosts.
func WithPosterHosts(hosts []string) ServerOption {
	return func(s *Server) {
		if hosts != nil {
			s.posterHosts = hosts
		}
	}
}

// WithRateLimit sets the global request budget per second. Zero disables it.
func WithRateLimit(rps float64) ServerOption {
	return func(s *Server) {
		if rps >= 0 {
			s.rps = rps
		}
	}
}

func NewServer(searchService *search.Service, options ...ServerOption) *Server {
	server := &Server{
		search:      searchService,
		logger:      slog.Default(),
		posterHosts: sanitize.DefaultPosterHosts,
		posterGuard: validateProxyURL,
		rps:         defaultRPS,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	server.posterClient = newImageProxyClient(server.checkPosterURL)
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /titles/{id}", s.handleTitle)
	mux.HandleFunc("GET /discover/genre/{genre}", s.handleGenre)
	mux.HandleFunc("GET /discover/latest", s.handleLatest)
	mux.HandleFunc("GET /discover/year/{year}", s.handleYear)
	mux.HandleFunc("GET /discover/top", s.handleTop)
	mux.HandleFunc("GET /posters", s.handlePoster)
	mux.HandleFunc("DELETE /cache", s.handleClearCache)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "filmsearch",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rps, int(2*s.rps), metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	var catalog *domain.CatalogDiagnostics
	if s.search != nil {
		diag := s.search.Diagnostics()
		catalog = &diag
		if !diag.Configured || !diag.Available {
			status = "degraded"
		}
	} else {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"catalog":   catalog,
	})
}

type searchResponse struct {
	Query        domain.SearchQuery   `json:"query"`
	Items        []domain.CatalogItem `json:"items"`
	TotalResults int                  `json:"totalResults"`
	TotalPages   int                  `json:"totalPages"`
	Cached       bool                 `json:"cached"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	q := r.URL.Query()
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}
	mediaType, ok := domain.ParseMediaType(q.Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid type")
		return
	}

	result, cached, err := s.search.Search(r.Context(), search.Filters{
		Text: q.Get("q"),
		Year: q.Get("y"),
		Type: mediaType,
		Page: page,
	})
	if err != nil {
		s.writeSearchError(w, r, "search", err)
		return
	}
	s.logger.Debug("search completed",
		slog.String("query", truncate(result.Query.Text, 80)),
		slog.Int("page", result.Query.Page),
		slog.Int("items", len(result.Items)),
		slog.Bool("cached", cached),
	)
	writeJSON(w, http.StatusOK, searchResponse{
		Query:        result.Query,
		Items:        nonNil(result.Items),
		TotalResults: result.TotalAvailable,
		TotalPages:   result.TotalPages(),
		Cached:       cached,
	})
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	item, err := s.search.Detail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSearchError(w, r, "title", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleGenre(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	mediaType, ok := domain.ParseMediaType(r.URL.Query().Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid type")
		return
	}
	result, err := s.search.DiscoverGenre(r.Context(), search.GenreRequest{
		Genre: r.PathValue("genre"),
		Type:  mediaType,
		Limit: limit,
	})
	if err != nil {
		s.writeSearchError(w, r, "genre", err)
		return
	}
	result.Items = nonNil(result.Items)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	mediaType := domain.MediaMovie
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		parsed, ok := domain.ParseMediaType(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid type")
			return
		}
		mediaType = parsed
	}
	result, err := s.search.LatestReleases(r.Context(), search.LatestRequest{Type: mediaType, Limit: limit})
	if err != nil {
		s.writeSearchError(w, r, "latest", err)
		return
	}
	result.Items = nonNil(result.Items)
	writeJSON(w, http.StatusOK, result)
}

// handleYear loads the movie and series lists of one year. pages asks for
// up to that many pages per list.
func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	raw, ok := sanitize.Year(r.PathValue("year"))
	if !ok {
		s.writeSearchError(w, r, "year", domain.ErrInvalidYear)
		return
	}
	year, _ := strconv.Atoi(raw)
	pages, err := parsePositiveInt(r, "pages", 1)
	if err != nil || pages > maxYearPages {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid pages")
		return
	}

	lists, err := s.search.YearLists(year)
	if err != nil {
		s.writeSearchError(w, r, "year", err)
		return
	}
	snapshot, err := lists.Load(r.Context())
	if err != nil {
		s.writeSearchError(w, r, "year", err)
		return
	}
	for i := 1; i < pages; i++ {
		for _, kind := range []domain.MediaType{domain.MediaMovie, domain.MediaSeries} {
			if _, err := lists.LoadMore(r.Context(), kind); err != nil {
				s.logger.Debug("year list stopped early",
					slog.Int("year", year),
					slog.String("type", string(kind)),
					slog.String("error", search.UserMessage(err)),
				)
			}
		}
		snapshot = lists.Snapshot()
	}
	snapshot.Movies.Items = nonNil(snapshot.Movies.Items)
	snapshot.Series.Items = nonNil(snapshot.Series.Items)
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	items, err := s.search.Curated(r.Context())
	if err != nil {
		s.writeSearchError(w, r, "top", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	if !s.ready(w) {
		return
	}
	s.search.ClearCache()
	s.logger.Info("search cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ready(w http.ResponseWriter) bool {
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return false
	}
	return true
}

// writeSearchError maps err onto a status and a message safe for clients.
// Provider error text is never sent.
func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			slog.String("op", op),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
		)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		w.Header().Set("Retry-After", cooldownRetry)
	}
	message := search.UserMessage(err)
	if message == "" {
		message = search.MessageUnavailable
	}
	writeError(w, status, code, message)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrInvalidYear),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrUnknownGenre):
		return http.StatusNotFound, "unknown_genre"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable, "not_configured"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusServiceUnavailable, "catalog_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, errors.New("invalid value")
	}
	return value, nil
}

func parseLimit(r *http.Request) (int, error) {
	limit, err := parsePositiveInt(r, "limit", 0)
	if err != nil {
		return 0, err
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func nonNil(items []domain.CatalogItem) []domain.CatalogItem {
	if items == nil {
		return []domain.CatalogItem{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
