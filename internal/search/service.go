package search

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/sanitize"
)

const (
	defaultDebounce = 500 * time.Millisecond
	defaultPacing   = 200 * time.Millisecond
)

// Service wires the catalog, the shared result cache and the health guard,
// and hands out controllers and aggregation runs that share them.
type Service struct {
	fetch         *fetcher
	cache         *ResultCache
	debounce      time.Duration
	pacing        time.Duration
	logger        *slog.Logger
	now           func() time.Time
	curatedTitles []string
}

type ServiceOption func(*Service)

// WithCache injects the result cache, e.g. to share one across services.
func WithCache(cache *ResultCache) ServiceOption {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func WithCacheSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.cache = NewResultCache(size)
		}
	}
}

func WithDebounce(delay time.Duration) ServiceOption {
	return func(s *Service) {
		if delay >= 0 {
			s.debounce = delay
		}
	}
}

// WithPacing sets the gap between catalog calls of one aggregation run.
// Zero disables pacing.
func WithPacing(gap time.Duration) ServiceOption {
	return func(s *Service) {
		if gap >= 0 {
			s.pacing = gap
		}
	}
}

func WithCooldown(base time.Duration) ServiceOption {
	return func(s *Service) {
		if base > 0 {
			s.fetch.health = newCatalogHealth(base)
		}
	}
}

func WithRetry(cfg RetryConfig) ServiceOption {
	return func(s *Service) {
		s.fetch.retry = cfg
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVerboseErrors logs raw provider error detail. Meant for development.
func WithVerboseErrors(verbose bool) ServiceOption {
	return func(s *Service) {
		s.fetch.verbose = verbose
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithCuratedTitles(titles []string) ServiceOption {
	return func(s *Service) {
		if len(titles) > 0 {
			s.curatedTitles = append([]string(nil), titles...)
		}
	}
}

// NewService builds a service over catalog. A nil catalog is allowed: every
// search then fails with domain.ErrConfiguration without a request.
func NewService(catalog Catalog, opts ...ServiceOption) *Service {
	svc := &Service{
		cache:         NewResultCache(defaultCacheMaxEntries),
		debounce:      defaultDebounce,
		pacing:        defaultPacing,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           time.Now,
		curatedTitles: DefaultCuratedTitles,
		fetch: &fetcher{
			catalog: catalog,
			details: newDetailCache(),
			retry:   DefaultRetryConfig(),
			health:  newCatalogHealth(defaultCooldownBase),
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.fetch.cache = svc.cache
	svc.fetch.logger = svc.logger
	svc.fetch.now = svc.now
	return svc
}

// NewController returns a controller bound to the shared cache. ctx is used
// for searches started by the debounce timer.
func (s *Service) NewController(ctx context.Context, opts ...ControllerOption) *Controller {
	c := &Controller{
		ctx:         ctx,
		fetch:       s.fetch,
		logger:      s.logger,
		debounce:    newDebouncer(s.debounce),
		state:       State{Filters: Filters{Page: 1}, Phase: PhaseIdle},
		acc:         domain.NewAccumulatedResultSet(),
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one validated search through the shared cache. The bool
// reports a cache hit.
func (s *Service) Search(ctx context.Context, filters Filters) (domain.ResultPage, bool, error) {
	query, err := BuildQuery(filters)
	if err != nil {
		return domain.ResultPage{}, false, err
	}
	return s.fetch.fetchPage(ctx, query, nil)
}

func (s *Service) Detail(ctx context.Context, rawID string) (domain.CatalogItem, error) {
	id, ok := sanitize.TitleID(rawID)
	if !ok {
		return domain.CatalogItem{}, domain.ErrInvalidID
	}
	return s.fetch.detail(ctx, id, nil)
}

// NewAccumulator returns an infinite-scroll list for filters.
func (s *Service) NewAccumulator(filters Filters) (*Accumulator, error) {
	query, err := BuildQuery(filters)
	if err != nil {
		return nil, err
	}
	return newAccumulator(s.fetch, s.newPacer(), query), nil
}

func (s *Service) ClearCache() {
	s.fetch.clearCaches()
}

func (s *Service) Configured() bool {
	return s.fetch.catalog != nil
}

func (s *Service) Diagnostics() domain.CatalogDiagnostics {
	diag := s.fetch.health.diagnostics(s.now())
	diag.Configured = s.Configured()
	diag.CacheEntries = s.cache.Len()
	diag.CacheCapacity = s.cache.Capacity()
	return diag
}

// newPacer spaces the catalog calls of one run. Each run gets its own.
func (s *Service) newPacer() *rate.Limiter {
	if s.pacing <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(s.pacing), 1)
}
