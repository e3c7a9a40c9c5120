package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"filmsearch/searchservice/internal/domain"
)

// fakeCatalog serves canned pages keyed by CacheKey. Unknown pages answer
// with a not-found error, like the real catalog.
type fakeCatalog struct {
	mu         sync.Mutex
	pages      map[string]domain.ResultPage
	pageErrs   map[string]error
	details    map[string]domain.CatalogItem
	detailErrs map[string]error
	queries    []domain.SearchQuery

	// gates holds a channel per query text; a search for that text blocks
	// until the channel is closed.
	gates   map[string]chan struct{}
	started chan string

	searches    atomic.Int32
	detailCalls atomic.Int32
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		pages:      make(map[string]domain.ResultPage),
		pageErrs:   make(map[string]error),
		details:    make(map[string]domain.CatalogItem),
		detailErrs: make(map[string]error),
		gates:      make(map[string]chan struct{}),
		started:    make(chan string, 16),
	}
}

func pageKey(text string, mediaType domain.MediaType, year string, page int) string {
	return CacheKey(domain.SearchQuery{Text: text, Type: mediaType, Year: year, Page: page})
}

func (f *fakeCatalog) addPage(text string, mediaType domain.MediaType, page, total int, items []domain.CatalogItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[pageKey(text, mediaType, "", page)] = domain.ResultPage{Items: items, TotalAvailable: total}
}

func (f *fakeCatalog) failPage(text string, mediaType domain.MediaType, page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageErrs[pageKey(text, mediaType, "", page)] = err
}

func (f *fakeCatalog) addDetail(item domain.CatalogItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[item.ID] = item
}

func (f *fakeCatalog) failDetail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailErrs[id] = err
}

func (f *fakeCatalog) gate(text string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[text] = ch
	return ch
}

func (f *fakeCatalog) Search(ctx context.Context, query domain.SearchQuery) (domain.ResultPage, error) {
	f.searches.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.gates[query.Text]
	f.mu.Unlock()

	if gate != nil {
		f.started <- query.Text
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.ResultPage{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := CacheKey(query)
	if err, ok := f.pageErrs[key]; ok {
		return domain.ResultPage{}, err
	}
	page, ok := f.pages[key]
	if !ok {
		return domain.ResultPage{}, domain.NewCatalogError(domain.ErrNotFound, 200, "Movie not found!", nil)
	}
	page.Query = query
	return page.Clone(), nil
}

func (f *fakeCatalog) Detail(ctx context.Context, id string) (domain.CatalogItem, error) {
	f.detailCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.detailErrs[id]; ok {
		return domain.CatalogItem{}, err
	}
	item, ok := f.details[id]
	if !ok {
		return domain.CatalogItem{}, domain.NewCatalogError(domain.ErrNotFound, 200, "Incorrect IMDb ID.", nil)
	}
	return item, nil
}

func (f *fakeCatalog) lastQuery() domain.SearchQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return domain.SearchQuery{}
	}
	return f.queries[len(f.queries)-1]
}

func makeItems(prefix string, from, count int) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, count)
	for i := from; i < from+count; i++ {
		items = append(items, domain.CatalogItem{
			ID:    fmt.Sprintf("%s%d", prefix, i),
			Title: fmt.Sprintf("%s title %d", prefix, i),
			Year:  "2001",
			Type:  domain.MediaMovie,
		})
	}
	return items
}

func newTestService(catalog Catalog, opts ...ServiceOption) *Service {
	base := []ServiceOption{
		WithDebounce(0),
		WithPacing(0),
		WithRetry(RetryConfig{MaxAttempts: 1}),
	}
	return NewService(catalog, append(base, opts...)...)
}

func transportErr(status int) error {
	return domain.NewCatalogError(domain.ErrTransport, status, "upstream exploded", nil)
}

func waitStarted(t *testing.T, f *fakeCatalog, want string) {
	t.Helper()
	select {
	case got := <-f.started:
		if got != want {
			t.Fatalf("expected %q to start, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("search for %q never started", want)
	}
}
