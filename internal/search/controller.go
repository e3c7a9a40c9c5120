package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/metrics"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseFetching   Phase = "fetching"
)

// Outcome is how the most recent completed run ended.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeCacheHit Outcome = "cache_hit"
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
)

// State is the observable view of one search surface.
type State struct {
	Filters      Filters              `json:"filters"`
	Phase        Phase                `json:"phase"`
	Outcome      Outcome              `json:"outcome,omitempty"`
	Items        []domain.CatalogItem `json:"items"`
	Loading      bool                 `json:"loading"`
	Err          error                `json:"-"`
	ErrorMessage string               `json:"error,omitempty"`
	TotalResults int                  `json:"totalResults"`
	TotalPages   int                  `json:"totalPages"`
	Exhausted    bool                 `json:"exhausted,omitempty"`
}

func (s State) clone() State {
	cloned := s
	if s.Items != nil {
		cloned.Items = append([]domain.CatalogItem(nil), s.Items...)
	}
	return cloned
}

type ControllerOption func(*Controller)

// WithAccumulation makes successive pages merge into one growing list
// instead of replacing it.
func WithAccumulation() ControllerOption {
	return func(c *Controller) {
		c.accumulate = true
	}
}

// Controller drives one search surface. Only the most recently started run
// may change the state; responses of superseded runs are dropped.
type Controller struct {
	ctx        context.Context
	fetch      *fetcher
	logger     *slog.Logger
	debounce   *debouncer
	accumulate bool

	mu          sync.Mutex
	state       State
	generation  uint64
	acc         *domain.AccumulatedResultSet
	subscribers map[int]func(State)
	nextSubID   int
}

// SetQuery updates the text filter. The search starts once typing has been
// quiet for the debounce delay. A run still in flight for the old text is
// discarded when it returns.
func (c *Controller) SetQuery(text string) {
	c.mu.Lock()
	c.generation++
	c.state.Filters.Text = text
	c.state.Phase = PhaseIdle
	c.state.Loading = false
	c.resetForFilterChangeLocked()
	c.mu.Unlock()

	c.debounce.schedule(func() {
		c.TriggerSearch(c.ctx)
	})
}

func (c *Controller) SetYear(ctx context.Context, year string) State {
	c.mu.Lock()
	c.state.Filters.Year = year
	c.resetForFilterChangeLocked()
	c.mu.Unlock()
	return c.TriggerSearch(ctx)
}

func (c *Controller) SetType(ctx context.Context, mediaType domain.MediaType) State {
	c.mu.Lock()
	c.state.Filters.Type = mediaType
	c.resetForFilterChangeLocked()
	c.mu.Unlock()
	return c.TriggerSearch(ctx)
}

// SetPage moves to page without touching the other filters.
func (c *Controller) SetPage(ctx context.Context, page int) State {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.state.Filters.Page = page
	c.mu.Unlock()
	return c.TriggerSearch(ctx)
}

// SetFilters replaces every filter at once and searches immediately. A
// page above 1 is kept; otherwise the search starts on page 1.
func (c *Controller) SetFilters(ctx context.Context, filters Filters) State {
	c.mu.Lock()
	c.state.Filters = filters
	c.resetForFilterChangeLocked()
	if filters.Page > 1 {
		c.state.Filters.Page = filters.Page
	}
	c.mu.Unlock()
	return c.TriggerSearch(ctx)
}

// TriggerSearch runs the current filters now, superseding any pending or
// in-flight run. In accumulate mode it restarts the list.
func (c *Controller) TriggerSearch(ctx context.Context) State {
	c.debounce.cancel()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	if c.accumulate {
		c.acc = domain.NewAccumulatedResultSet()
		c.acc.NextPage = max(c.state.Filters.Page, 1)
	}
	filters := c.state.Filters
	c.state.Phase = PhaseValidating
	c.mu.Unlock()

	return c.run(ctx, gen, filters, false)
}

// LoadMore fetches the next page in accumulate mode. Calls made while a
// page is loading, after the list is exhausted, or in replace mode return
// the current state without a request.
func (c *Controller) LoadMore(ctx context.Context) State {
	c.mu.Lock()
	if !c.accumulate || c.state.Loading || c.state.Phase != PhaseIdle || c.acc.Exhausted {
		state := c.state.clone()
		c.mu.Unlock()
		return state
	}
	if len(c.acc.Items) == 0 {
		c.mu.Unlock()
		return c.TriggerSearch(ctx)
	}
	c.debounce.cancel()
	c.generation++
	gen := c.generation
	c.state.Filters.Page = c.acc.NextPage
	filters := c.state.Filters
	c.state.Phase = PhaseValidating
	c.mu.Unlock()

	return c.run(ctx, gen, filters, true)
}

// ResetFilters clears the filters and the displayed results and drops any
// pending or in-flight run. The shared cache is left alone.
func (c *Controller) ResetFilters() State {
	c.debounce.cancel()

	c.mu.Lock()
	c.generation++
	c.state = State{Filters: Filters{Page: 1}, Phase: PhaseIdle}
	c.acc = domain.NewAccumulatedResultSet()
	state, subs := c.snapshotLocked()
	c.mu.Unlock()

	notify(subs, state)
	return state
}

// ClearCache empties the shared result and detail caches.
func (c *Controller) ClearCache() {
	c.fetch.clearCaches()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn for every state change. fn may run on a timer
// goroutine and must not block. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) resetForFilterChangeLocked() {
	c.state.Filters.Page = 1
	c.acc = domain.NewAccumulatedResultSet()
	c.state.Exhausted = false
}

func (c *Controller) run(ctx context.Context, gen uint64, filters Filters, appending bool) State {
	query, err := BuildQuery(filters)
	if err != nil {
		return c.complete(gen, domain.ResultPage{}, OutcomeFailure, err, appending)
	}

	if page, ok := c.fetch.cachedPage(query); ok {
		page.Query = query
		return c.complete(gen, page, OutcomeCacheHit, nil, appending)
	}

	c.mu.Lock()
	if gen != c.generation {
		state := c.state.clone()
		c.mu.Unlock()
		return state
	}
	c.state.Phase = PhaseFetching
	c.state.Loading = true
	state, subs := c.snapshotLocked()
	c.mu.Unlock()
	notify(subs, state)

	page, err := c.fetch.fetchMiss(ctx, query, nil)
	if err != nil {
		return c.complete(gen, domain.ResultPage{}, OutcomeFailure, err, appending)
	}
	page.Query = query
	return c.complete(gen, page, OutcomeSuccess, nil, appending)
}

func (c *Controller) complete(gen uint64, page domain.ResultPage, outcome Outcome, err error, appending bool) State {
	c.mu.Lock()
	if gen != c.generation {
		state := c.state.clone()
		c.mu.Unlock()
		metrics.SupersededResponsesTotal.Inc()
		c.logger.Debug("discarding superseded search response", slog.Uint64("generation", gen))
		return state
	}

	c.state.Phase = PhaseIdle
	c.state.Loading = false
	c.state.Outcome = outcome
	c.state.Err = err
	c.state.ErrorMessage = UserMessage(err)

	switch {
	case err == nil && c.accumulate:
		mergeScrollPage(c.acc, page.Query.Page, page)
		c.state.Items = append([]domain.CatalogItem(nil), c.acc.Items...)
		c.state.Exhausted = c.acc.Exhausted
		c.state.TotalResults = page.TotalAvailable
		c.state.TotalPages = page.TotalPages()
	case err == nil:
		c.state.Items = page.Items
		c.state.TotalResults = page.TotalAvailable
		c.state.TotalPages = page.TotalPages()
	case appending && errors.Is(err, domain.ErrNotFound):
		// Running past the last page ends the list without failing it.
		c.acc.Exhausted = true
		c.state.Exhausted = true
		c.state.Outcome = OutcomeSuccess
		c.state.Err = nil
		c.state.ErrorMessage = ""
	case retainsResults(err):
		// Keep what is on screen.
	default:
		c.state.Items = nil
		c.state.TotalResults = 0
		c.state.TotalPages = 0
		if c.accumulate {
			c.acc = domain.NewAccumulatedResultSet()
			c.state.Exhausted = false
		}
	}
	state, subs := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("search run failed",
			slog.String("outcome", string(outcome)),
			slog.String("message", state.ErrorMessage),
		)
	}
	notify(subs, state)
	return state
}

func (c *Controller) snapshotLocked() (State, []func(State)) {
	subs := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return c.state.clone(), subs
}

func notify(subs []func(State), state State) {
	for _, fn := range subs {
		fn(state.clone())
	}
}
