package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"filmsearch/searchservice/internal/domain"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetryWithBackoffStopsOnSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 2 {
			return transportErr(0)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after a network failure, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryWithBackoffDefaultAllowsOneRepeat(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond

	calls := 0
	err := RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return transportErr(502)
	})
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected the last transport error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls under the default budget, got %d", calls)
	}
}

func TestRetryWithBackoffReturnsLastError(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return domain.NewCatalogError(domain.ErrTransport, 500+calls, "", nil)
	})
	var catalogErr *domain.CatalogError
	if !errors.As(err, &catalogErr) || catalogErr.StatusCode != 503 {
		t.Fatalf("expected the third failure (503), got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoffFinalKindsAreNotRepeated(t *testing.T) {
	for _, kind := range []error{domain.ErrAuth, domain.ErrRateLimited, domain.ErrNotFound, domain.ErrConfiguration} {
		calls := 0
		err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
			calls++
			return domain.NewCatalogError(kind, 0, "", nil)
		})
		if !errors.Is(err, kind) {
			t.Fatalf("%v: unexpected error %v", kind, err)
		}
		if calls != 1 {
			t.Fatalf("%v: expected 1 call, got %d", kind, calls)
		}
	}
}

func TestRetryWithBackoffStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2}

	calls := 0
	err := RetryWithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return transportErr(0)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetryWithBackoffCapsPause(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: 40 * time.Millisecond, MaxDelay: 40 * time.Millisecond, Multiplier: 10}

	started := time.Now()
	_ = RetryWithBackoff(context.Background(), cfg, func() error {
		return transportErr(0)
	})
	// Two pauses of at most MaxDelay each.
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Fatalf("pauses were not capped: %v", elapsed)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", domain.NewCatalogError(domain.ErrTransport, 0, "", errors.New("connection reset")), true},
		{"server error", transportErr(502), true},
		{"client error", transportErr(404), false},
		{"bad body", domain.NewCatalogError(domain.ErrTransport, 200, "invalid response body", nil), false},
		{"auth", domain.NewCatalogError(domain.ErrAuth, 401, "", nil), false},
		{"rate limited", domain.NewCatalogError(domain.ErrRateLimited, 429, "", nil), false},
		{"not found", domain.NewCatalogError(domain.ErrNotFound, 200, "Movie not found!", nil), false},
		{"configuration", domain.NewCatalogError(domain.ErrConfiguration, 0, "", nil), false},
		{"unclassified", errors.New("connection reset"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		if got := retryable(tt.err); got != tt.want {
			t.Errorf("%s: retryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}
