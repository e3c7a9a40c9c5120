package search

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"filmsearch/searchservice/internal/domain"
)

// RetryConfig bounds how often a failed catalog call is repeated.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig allows one repeat after about 300ms. Catalog calls sit
// on an interactive path, so the budget stays small.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 300 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryWithBackoff calls fn until it succeeds, fails with an error that is
// not retryable, or runs out of attempts. The pause between attempts grows
// by Multiplier with ±25% jitter and never exceeds MaxDelay. It returns the
// last error, or ctx.Err() if ctx ends during a pause.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	attempts := max(cfg.MaxAttempts, 1)
	pause := cfg.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !retryable(err) || attempt == attempts {
			return err
		}
		if err := sleepCtx(ctx, min(withJitter(pause), cfg.MaxDelay)); err != nil {
			return err
		}
		pause = min(time.Duration(float64(pause)*cfg.Multiplier), cfg.MaxDelay)
	}
}

// retryable reports whether a catalog failure may clear up on its own: a
// transport failure that got no response or a 5xx one. Auth, rate limit,
// not-found and configuration failures are final, as is anything the
// catalog client did not classify.
func retryable(err error) bool {
	var catalogErr *domain.CatalogError
	if !errors.As(err, &catalogErr) || !errors.Is(catalogErr.Kind, domain.ErrTransport) {
		return false
	}
	return catalogErr.StatusCode == 0 || catalogErr.StatusCode >= 500
}

func withJitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.75 + rand.Float64()*0.5))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
