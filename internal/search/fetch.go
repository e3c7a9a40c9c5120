package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"filmsearch/searchservice/internal/domain"
)

const (
	tracerName            = "filmsearch/search"
	defaultDetailCacheMax = 256
	sharedCallTimeout     = 30 * time.Second
)

// Catalog is the remote title catalog.
type Catalog interface {
	Search(ctx context.Context, query domain.SearchQuery) (domain.ResultPage, error)
	Detail(ctx context.Context, id string) (domain.CatalogItem, error)
}

var errNotConfigured = domain.NewCatalogError(domain.ErrConfiguration, 0, "catalog client is not configured", nil)

// fetcher is the single path every controller and aggregation run takes to
// the catalog: result cache, request coalescing, retry and health guard.
type fetcher struct {
	catalog Catalog
	cache   *ResultCache
	details *lru.Cache[string, domain.CatalogItem]
	group   singleflight.Group
	retry   RetryConfig
	health  *catalogHealth
	logger  *slog.Logger
	verbose bool
	now     func() time.Time
}

func (f *fetcher) cachedPage(query domain.SearchQuery) (domain.ResultPage, bool) {
	return f.cache.Get(CacheKey(query))
}

// fetchPage serves query from the cache or the catalog. The bool reports a
// cache hit. Only catalog calls wait on pacer.
func (f *fetcher) fetchPage(ctx context.Context, query domain.SearchQuery, pacer *rate.Limiter) (domain.ResultPage, bool, error) {
	if page, ok := f.cachedPage(query); ok {
		return page, true, nil
	}
	page, err := f.fetchMiss(ctx, query, pacer)
	return page, false, err
}

// fetchMiss calls the catalog for a query already known to be uncached and
// stores a successful page. Identical concurrent misses share one call.
func (f *fetcher) fetchMiss(ctx context.Context, query domain.SearchQuery, pacer *rate.Limiter) (domain.ResultPage, error) {
	if f.catalog == nil {
		return domain.ResultPage{}, errNotConfigured
	}
	if pacer != nil {
		if err := pacer.Wait(ctx); err != nil {
			return domain.ResultPage{}, err
		}
	}

	key := CacheKey(query)
	value, err := f.shared(ctx, "page|"+key, func(sharedCtx context.Context) (any, error) {
		var page domain.ResultPage
		err := f.call(sharedCtx, "search", func(callCtx context.Context) error {
			var callErr error
			page, callErr = f.catalog.Search(callCtx, query)
			return callErr
		}, attribute.String("catalog.query", query.Text), attribute.Int("catalog.page", query.Page))
		if err != nil {
			return domain.ResultPage{}, err
		}
		if page.Query == (domain.SearchQuery{}) {
			page.Query = query
		}
		f.cache.Put(key, page)
		return page, nil
	})
	if err != nil {
		return domain.ResultPage{}, err
	}
	return value.(domain.ResultPage).Clone(), nil
}

func (f *fetcher) detail(ctx context.Context, id string, pacer *rate.Limiter) (domain.CatalogItem, error) {
	if item, ok := f.details.Get(id); ok {
		return item, nil
	}
	if f.catalog == nil {
		return domain.CatalogItem{}, errNotConfigured
	}
	if pacer != nil {
		if err := pacer.Wait(ctx); err != nil {
			return domain.CatalogItem{}, err
		}
	}

	value, err := f.shared(ctx, "detail|"+id, func(sharedCtx context.Context) (any, error) {
		var item domain.CatalogItem
		err := f.call(sharedCtx, "detail", func(callCtx context.Context) error {
			var callErr error
			item, callErr = f.catalog.Detail(callCtx, id)
			return callErr
		}, attribute.String("catalog.id", id))
		if err != nil {
			return domain.CatalogItem{}, err
		}
		f.details.Add(id, item)
		return item, nil
	})
	if err != nil {
		return domain.CatalogItem{}, err
	}
	return value.(domain.CatalogItem), nil
}

// shared runs fn once for every concurrent caller of key. fn gets a context
// that outlives any single caller, bounded by sharedCallTimeout; each caller
// stops waiting when its own ctx is done.
func (f *fetcher) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := f.group.DoChan(key, func() (any, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()
		return fn(sharedCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// call runs one catalog operation under the health guard with retries and a span.
func (f *fetcher) call(ctx context.Context, endpoint string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	if blocked, until := f.health.blocked(f.now()); blocked {
		f.logger.Debug("catalog cooling down",
			slog.String("endpoint", endpoint),
			slog.Time("until", until),
		)
		return domain.NewCatalogError(domain.ErrRateLimited, 0, "catalog cooling down", nil)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "catalog."+endpoint)
	defer span.End()
	span.SetAttributes(attrs...)

	err := RetryWithBackoff(ctx, f.retry, func() error {
		started := f.now()
		attemptErr := fn(ctx)
		f.health.record(attemptErr, f.now().Sub(started), f.now())
		return attemptErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, describeFailure(err))
		f.logFailure(endpoint, err)
		return err
	}
	return nil
}

func (f *fetcher) logFailure(endpoint string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		f.logger.Debug("catalog returned no results", slog.String("endpoint", endpoint))
		return
	}
	attrs := []any{
		slog.String("endpoint", endpoint),
		slog.String("kind", describeFailure(err)),
	}
	if f.verbose {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	f.logger.Warn("catalog request failed", attrs...)
}

func (f *fetcher) clearCaches() {
	f.cache.Clear()
	f.details.Purge()
}

func newDetailCache() *lru.Cache[string, domain.CatalogItem] {
	details, err := lru.New[string, domain.CatalogItem](defaultDetailCacheMax)
	if err != nil {
		panic(err)
	}
	return details
}
