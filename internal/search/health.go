package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"filmsearch/searchservice/internal/domain"
	"filmsearch/searchservice/internal/metrics"
)

const (
	transportFailureThreshold = 3
	defaultCooldownBase       = 30 * time.Second
	cooldownMax               = 5 * time.Minute
)

// catalogHealth is a circuit breaker around the catalog. A rate-limited
// response, or a run of transport failures, opens a cooldown during which
// the fetch path fails fast without contacting the provider.
type catalogHealth struct {
	mu                  sync.Mutex
	base                time.Duration
	consecutiveFailures int
	consecutiveOpens    int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	totalRequests       int64
	totalFailures       int64
	rateLimitCount      int64
	timeoutCount        int64
}

func newCatalogHealth(base time.Duration) *catalogHealth {
	if base <= 0 {
		base = defaultCooldownBase
	}
	metrics.CatalogAvailable.Set(1)
	return &catalogHealth{base: base}
}

func (h *catalogHealth) blocked(now time.Time) (bool, time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.blockedUntil.IsZero() || !now.Before(h.blockedUntil) {
		return false, time.Time{}
	}
	return true, h.blockedUntil
}

func (h *catalogHealth) record(err error, latency time.Duration, now time.Time) {
	if errors.Is(err, context.Canceled) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.totalRequests++
	if latency > 0 {
		h.lastLatency = latency
	}

	// A not-found answer means the catalog is up and answering.
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		h.consecutiveFailures = 0
		h.consecutiveOpens = 0
		h.blockedUntil = time.Time{}
		h.lastError = ""
		h.lastSuccessAt = now
		metrics.CatalogAvailable.Set(1)
		return
	}

	h.totalFailures++
	h.lastFailureAt = now
	h.lastError = describeFailure(err)
	if errors.Is(err, context.DeadlineExceeded) {
		h.timeoutCount++
	}

	switch {
	case errors.Is(err, domain.ErrRateLimited):
		h.rateLimitCount++
		h.open(now)
	case errors.Is(err, domain.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		h.consecutiveFailures++
		if h.consecutiveFailures >= transportFailureThreshold {
			h.open(now)
		}
	}
}

func (h *catalogHealth) open(now time.Time) {
	h.consecutiveOpens++
	h.blockedUntil = now.Add(cooldownDuration(h.base, h.consecutiveOpens))
	metrics.CatalogAvailable.Set(0)
}

// cooldownDuration is base × 2^(opens-1), capped at cooldownMax.
func cooldownDuration(base time.Duration, opens int) time.Duration {
	d := base
	for i := 1; i < opens; i++ {
		d *= 2
		if d >= cooldownMax {
			return cooldownMax
		}
	}
	if d > cooldownMax {
		return cooldownMax
	}
	return d
}

// describeFailure keeps the kind and status only. Provider text stays out of
// diagnostics.
func describeFailure(err error) string {
	label := "transport"
	switch {
	case errors.Is(err, domain.ErrAuth):
		label = "auth"
	case errors.Is(err, domain.ErrRateLimited):
		label = "rate_limited"
	case errors.Is(err, domain.ErrConfiguration):
		label = "configuration"
	case errors.Is(err, context.DeadlineExceeded):
		label = "timeout"
	}
	if status := domain.StatusCode(err); status > 0 {
		return fmt.Sprintf("%s (HTTP %d)", label, status)
	}
	return label
}

func (h *catalogHealth) diagnostics(now time.Time) domain.CatalogDiagnostics {
	h.mu.Lock()
	defer h.mu.Unlock()

	item := domain.CatalogDiagnostics{
		Available:           h.blockedUntil.IsZero() || !now.Before(h.blockedUntil),
		ConsecutiveFailures: h.consecutiveFailures,
		LastError:           strings.TrimSpace(h.lastError),
		LastLatencyMS:       h.lastLatency.Milliseconds(),
		TotalRequests:       h.totalRequests,
		TotalFailures:       h.totalFailures,
		RateLimitCount:      h.rateLimitCount,
		TimeoutCount:        h.timeoutCount,
	}
	if !h.blockedUntil.IsZero() && now.Before(h.blockedUntil) {
		blockedUntil := h.blockedUntil
		item.BlockedUntil = &blockedUntil
	}
	if !h.lastSuccessAt.IsZero() {
		lastSuccessAt := h.lastSuccessAt
		item.LastSuccessAt = &lastSuccessAt
	}
	if !h.lastFailureAt.IsZero() {
		lastFailureAt := h.lastFailureAt
		item.LastFailureAt = &lastFailureAt
	}
	return item
}
