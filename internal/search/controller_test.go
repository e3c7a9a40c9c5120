package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"filmsearch/searchservice/internal/domain"
)

func TestControllerSearchesAndPaginates(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 34, makeItems("tt", 1, 10))
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	state := ctl.State()

	if state.Outcome != OutcomeSuccess || state.Phase != PhaseIdle || state.Loading {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(state.Items) != 10 || state.TotalResults != 34 || state.TotalPages != 4 {
		t.Fatalf("unexpected results: %d items, total %d, pages %d", len(state.Items), state.TotalResults, state.TotalPages)
	}
	want := domain.SearchQuery{Text: "matrix", Page: 1}
	if got := catalog.lastQuery(); got != want {
		t.Fatalf("expected catalog query %+v, got %+v", want, got)
	}

	again := ctl.TriggerSearch(context.Background())
	if again.Outcome != OutcomeCacheHit || again.Loading {
		t.Fatalf("expected cache hit without loading, got %+v", again)
	}
	if got := catalog.searches.Load(); got != 1 {
		t.Fatalf("expected 1 catalog call, got %d", got)
	}
}

func TestControllerEmptyQueryNeverReachesCatalog(t *testing.T) {
	catalog := newFakeCatalog()
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("!!!")
	state := ctl.State()

	if state.Outcome != OutcomeFailure || !errors.Is(state.Err, domain.ErrEmptyQuery) {
		t.Fatalf("expected empty query failure, got %+v", state)
	}
	if state.ErrorMessage != MessageEmptyQuery {
		t.Fatalf("unexpected message %q", state.ErrorMessage)
	}
	if catalog.searches.Load() != 0 || svc.cache.Len() != 0 {
		t.Fatal("validation failure touched the catalog or cache")
	}
}

func TestControllerInvalidYearNeverReachesCatalog(t *testing.T) {
	catalog := newFakeCatalog()
	svc := newTestService(catalog, WithDebounce(time.Hour))
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	state := ctl.SetYear(context.Background(), "1850")

	if !errors.Is(state.Err, domain.ErrInvalidYear) || state.ErrorMessage != MessageInvalidYear {
		t.Fatalf("expected invalid year failure, got %+v", state)
	}
	if catalog.searches.Load() != 0 {
		t.Fatalf("expected no catalog call, got %d", catalog.searches.Load())
	}
}

func TestControllerRetainsResultsOnRateLimit(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 34, makeItems("tt", 1, 10))
	catalog.failPage("matrix", domain.MediaAny, 2, domain.NewCatalogError(domain.ErrRateLimited, 429, "Too many requests, slow down", nil))
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	state := ctl.SetPage(context.Background(), 2)

	if state.Outcome != OutcomeFailure || !errors.Is(state.Err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit failure, got %+v", state)
	}
	if state.ErrorMessage != MessageRateLimited {
		t.Fatalf("unexpected message %q", state.ErrorMessage)
	}
	if len(state.Items) != 10 || state.Items[0].ID != "tt1" || state.TotalPages != 4 {
		t.Fatalf("expected previous results to stay visible, got %d items", len(state.Items))
	}
	if state.Filters.Page != 2 {
		t.Fatalf("expected page 2 to stay selected, got %d", state.Filters.Page)
	}
}

func TestControllerClearsResultsOnNotFound(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 34, makeItems("tt", 1, 10))
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	ctl.SetQuery("qwertyuiop")
	state := ctl.State()

	if !errors.Is(state.Err, domain.ErrNotFound) || state.ErrorMessage != MessageNotFound {
		t.Fatalf("expected not found, got %+v", state)
	}
	if len(state.Items) != 0 || state.TotalResults != 0 || state.TotalPages != 0 {
		t.Fatalf("expected cleared results, got %+v", state)
	}
}

func TestControllerHidesProviderText(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.failPage("matrix", domain.MediaAny, 1, domain.NewCatalogError(domain.ErrAuth, 401, "Invalid API key: abc", nil))
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	state := ctl.State()
	if state.ErrorMessage != MessageUnavailable {
		t.Fatalf("unexpected message %q", state.ErrorMessage)
	}
}

func TestControllerWithoutCatalogFailsFast(t *testing.T) {
	svc := newTestService(nil)
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	state := ctl.State()
	if !errors.Is(state.Err, domain.ErrConfiguration) || state.ErrorMessage != MessageNotConfigured {
		t.Fatalf("expected configuration failure, got %+v", state)
	}
}

func TestControllerDiscardsSupersededResponse(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("alpha", domain.MediaAny, 1, 1, makeItems("a", 1, 1))
	catalog.addPage("beta", domain.MediaAny, 1, 1, makeItems("b", 1, 1))
	release := catalog.gate("alpha")
	svc := newTestService(catalog, WithDebounce(time.Hour))
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("alpha")
	done := make(chan State, 1)
	go func() {
		done <- ctl.TriggerSearch(context.Background())
	}()
	waitStarted(t, catalog, "alpha")

	ctl.SetQuery("beta")
	beta := ctl.TriggerSearch(context.Background())
	if len(beta.Items) != 1 || beta.Items[0].ID != "b1" {
		t.Fatalf("expected beta results, got %+v", beta.Items)
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search never returned")
	}

	state := ctl.State()
	if len(state.Items) != 1 || state.Items[0].ID != "b1" || state.Filters.Text != "beta" {
		t.Fatalf("stale response overwrote newer results: %+v", state)
	}
	if state.Loading {
		t.Fatal("expected loading flag cleared")
	}
}

func TestControllerDebouncesTyping(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 1, makeItems("tt", 1, 1))
	svc := newTestService(catalog, WithDebounce(30*time.Millisecond))
	ctl := svc.NewController(context.Background())

	finished := make(chan State, 4)
	cancel := ctl.Subscribe(func(s State) {
		if s.Phase == PhaseIdle && s.Outcome != OutcomeNone {
			finished <- s
		}
	})
	defer cancel()

	for _, text := range []string{"m", "ma", "mat", "matr", "matrix"} {
		ctl.SetQuery(text)
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case state := <-finished:
		if state.Outcome != OutcomeSuccess || len(state.Items) != 1 {
			t.Fatalf("unexpected state %+v", state)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced search never ran")
	}
	time.Sleep(60 * time.Millisecond)
	if got := catalog.searches.Load(); got != 1 {
		t.Fatalf("expected exactly 1 catalog call, got %d", got)
	}
	if got := catalog.lastQuery().Text; got != "matrix" {
		t.Fatalf("expected final text to be searched, got %q", got)
	}
}

func TestControllerFilterChangeResetsPage(t *testing.T) {
	catalog := newFakeCatalog()
	svc := newTestService(catalog, WithDebounce(time.Hour))
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	ctl.SetPage(context.Background(), 3)
	if got := ctl.State().Filters.Page; got != 3 {
		t.Fatalf("expected page 3, got %d", got)
	}
	state := ctl.SetType(context.Background(), domain.MediaSeries)
	if state.Filters.Page != 1 {
		t.Fatalf("expected type change to reset page, got %d", state.Filters.Page)
	}
	if got := catalog.lastQuery(); got.Type != domain.MediaSeries || got.Page != 1 {
		t.Fatalf("unexpected catalog query %+v", got)
	}
}

func TestControllerYearAndTypeCancelPendingDebounce(t *testing.T) {
	catalog := newFakeCatalog()
	svc := newTestService(catalog, WithDebounce(40*time.Millisecond))
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	ctl.SetYear(context.Background(), "1999")
	time.Sleep(100 * time.Millisecond)

	if got := catalog.searches.Load(); got != 1 {
		t.Fatalf("expected the year change to replace the pending search, got %d calls", got)
	}
	if got := catalog.lastQuery(); got.Year != "1999" || got.Text != "matrix" {
		t.Fatalf("unexpected catalog query %+v", got)
	}
}

func TestControllerResetFiltersKeepsCache(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 34, makeItems("tt", 1, 10))
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background())

	ctl.SetQuery("matrix")
	state := ctl.ResetFilters()
	if len(state.Items) != 0 || state.Filters != (Filters{Page: 1}) || state.Outcome != OutcomeNone {
		t.Fatalf("unexpected state after reset %+v", state)
	}
	if svc.cache.Len() != 1 {
		t.Fatalf("expected cache to survive reset, got %d entries", svc.cache.Len())
	}

	ctl.ClearCache()
	if svc.cache.Len() != 0 {
		t.Fatal("expected ClearCache to empty the shared cache")
	}
}

func TestControllerClearCacheDropsDetails(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addDetail(domain.CatalogItem{ID: "tt0133093", Title: "The Matrix"})
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background())

	for i := 0; i < 2; i++ {
		if _, err := svc.Detail(context.Background(), "tt0133093"); err != nil {
			t.Fatalf("detail: %v", err)
		}
	}
	if got := catalog.detailCalls.Load(); got != 1 {
		t.Fatalf("expected the second detail lookup to be cached, got %d calls", got)
	}

	ctl.ClearCache()
	if _, err := svc.Detail(context.Background(), "tt0133093"); err != nil {
		t.Fatalf("detail after clear: %v", err)
	}
	if got := catalog.detailCalls.Load(); got != 2 {
		t.Fatalf("expected ClearCache to drop cached details, got %d calls", got)
	}
}

func TestControllerQueryChangeDiscardsInFlightRun(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 34, makeItems("tt", 1, 10))
	release := catalog.gate("matrix")
	svc := newTestService(catalog, WithDebounce(time.Hour))
	ctl := svc.NewController(context.Background(), WithAccumulation())

	ctl.SetQuery("matrix")
	done := make(chan State, 1)
	go func() {
		done <- ctl.TriggerSearch(context.Background())
	}()
	waitStarted(t, catalog, "matrix")

	ctl.SetQuery("alien")
	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight search never returned")
	}

	state := ctl.State()
	if state.Filters.Text != "alien" {
		t.Fatalf("expected the new text to stay, got %q", state.Filters.Text)
	}
	if len(state.Items) != 0 || state.Outcome != OutcomeNone || state.Loading {
		t.Fatalf("old query results leaked into the new query: %+v", state)
	}
}

func TestControllersShareCache(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 34, makeItems("tt", 1, 10))
	svc := newTestService(catalog)

	first := svc.NewController(context.Background())
	second := svc.NewController(context.Background())
	first.SetQuery("Matrix")
	second.SetQuery("matrix")

	if got := second.State().Outcome; got != OutcomeCacheHit {
		t.Fatalf("expected second controller to hit the shared cache, got %q", got)
	}
	if catalog.searches.Load() != 1 {
		t.Fatalf("expected 1 catalog call, got %d", catalog.searches.Load())
	}
}

func TestControllerAccumulatesPages(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 100, makeItems("tt", 1, 10))
	catalog.addPage("matrix", domain.MediaAny, 2, 100, makeItems("tt", 11, 10))
	catalog.addPage("matrix", domain.MediaAny, 3, 100, makeItems("tt", 1, 10))
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background(), WithAccumulation())

	ctl.SetQuery("matrix")
	state := ctl.LoadMore(context.Background())
	if len(state.Items) != 20 || state.Exhausted {
		t.Fatalf("expected 20 items after two pages, got %d (exhausted=%v)", len(state.Items), state.Exhausted)
	}
	state = ctl.LoadMore(context.Background())
	if !state.Exhausted || len(state.Items) != 20 {
		t.Fatalf("expected exhaustion on a page with no new ids, got %+v", state)
	}
	ctl.LoadMore(context.Background())
	if got := catalog.searches.Load(); got != 3 {
		t.Fatalf("expected no request after exhaustion, got %d calls", got)
	}

	state = ctl.SetType(context.Background(), domain.MediaMovie)
	if state.Exhausted || state.Filters.Page != 1 {
		t.Fatalf("expected filter change to discard the accumulated set, got %+v", state)
	}
}

func TestControllerSubscribeCancel(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("matrix", domain.MediaAny, 1, 1, makeItems("tt", 1, 1))
	svc := newTestService(catalog)
	ctl := svc.NewController(context.Background())

	var mu sync.Mutex
	count := 0
	cancel := ctl.Subscribe(func(State) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	ctl.SetQuery("matrix")
	cancel()
	ctl.ResetFilters()

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Fatalf("expected loading and result notifications only, got %d", count)
	}
}

func TestControllerSetFiltersRunsOnce(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addPage("alien", domain.MediaMovie, 2, 30, makeItems("a", 11, 10))
	svc := newTestService(catalog, WithDebounce(time.Hour))
	ctl := svc.NewController(context.Background())

	state := ctl.SetFilters(context.Background(), Filters{Text: "Alien", Type: domain.MediaMovie, Page: 2})
	if state.Outcome != OutcomeSuccess || len(state.Items) != 10 || state.Filters.Page != 2 {
		t.Fatalf("unexpected state %+v", state)
	}
	want := domain.SearchQuery{Text: "Alien", Type: domain.MediaMovie, Page: 2}
	if got := catalog.lastQuery(); got != want {
		t.Fatalf("expected catalog query %+v, got %+v", want, got)
	}
	if got := catalog.searches.Load(); got != 1 {
		t.Fatalf("expected a single catalog call, got %d", got)
	}
}
