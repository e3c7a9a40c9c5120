package search

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"filmsearch/searchservice/internal/domain"
)

// mergeScrollPage folds the page fetched for pageNumber into set and
// advances it. The set is exhausted when the page added nothing new, came
// back short, or was the last page the catalog reported.
func mergeScrollPage(set *domain.AccumulatedResultSet, pageNumber int, page domain.ResultPage) int {
	survivors := set.Merge(page.Items)
	set.NextPage = pageNumber + 1
	totalPages := page.TotalPages()
	if survivors == 0 || len(page.Items) < domain.PageSize || (totalPages > 0 && set.NextPage > totalPages) {
		set.Exhausted = true
	}
	return survivors
}

// Accumulator grows one query's results a page at a time, for infinite
// scrolling surfaces.
type Accumulator struct {
	fetch *fetcher
	pacer *rate.Limiter

	mu      sync.Mutex
	query   domain.SearchQuery
	set     *domain.AccumulatedResultSet
	loading bool
	epoch   uint64
	total   int
}

func newAccumulator(fetch *fetcher, pacer *rate.Limiter, query domain.SearchQuery) *Accumulator {
	return &Accumulator{
		fetch: fetch,
		pacer: pacer,
		query: query.WithPage(1),
		set:   domain.NewAccumulatedResultSet(),
	}
}

// LoadMore fetches the next page. Calls made while a fetch is running or
// after exhaustion return the current set without a request.
func (a *Accumulator) LoadMore(ctx context.Context) (domain.AccumulatedResultSet, error) {
	a.mu.Lock()
	if a.loading || a.set.Exhausted {
		snapshot := a.set.Snapshot()
		a.mu.Unlock()
		return snapshot, nil
	}
	a.loading = true
	epoch := a.epoch
	pageNumber := a.set.NextPage
	query := a.query.WithPage(pageNumber)
	a.mu.Unlock()

	page, _, err := a.fetch.fetchPage(ctx, query, a.pacer)

	a.mu.Lock()
	defer a.mu.Unlock()
	if epoch != a.epoch {
		// Reset while the fetch was running.
		return a.set.Snapshot(), nil
	}
	a.loading = false

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.set.Exhausted = true
			if pageNumber > 1 {
				return a.set.Snapshot(), nil
			}
		}
		return a.set.Snapshot(), err
	}
	mergeScrollPage(a.set, pageNumber, page)
	a.total = page.TotalAvailable
	return a.set.Snapshot(), nil
}

// Reset discards the accumulated set and switches to query.
func (a *Accumulator) Reset(query domain.SearchQuery) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.epoch++
	a.query = query.WithPage(1)
	a.set = domain.NewAccumulatedResultSet()
	a.loading = false
	a.total = 0
}

func (a *Accumulator) Snapshot() domain.AccumulatedResultSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set.Snapshot()
}

func (a *Accumulator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// TotalResults is the catalog's total for the query, as of the last page.
func (a *Accumulator) TotalResults() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
