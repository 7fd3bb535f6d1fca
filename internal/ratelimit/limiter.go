// Package ratelimit paces requests against the scraped stores. One
// limiter exists per store; adapters never share one, matching the
// one-session-per-store isolation model.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with the store name for logging.
type Limiter struct {
	limiter *rate.Limiter
	store   string
}

// PerStore creates a politeness limiter for one store. requestsPerSecond
// may be fractional (0.5 = one request every two seconds); burst is 1 so
// page loads are strictly paced.
func PerStore(store string, requestsPerSecond float64) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		store:   store,
	}
}

// Wait blocks until the next request against the store may proceed, or
// until ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.store, err)
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		slog.Debug("Paced request", "store", l.store, "waited", waited)
	}
	return nil
}

// Store returns the store this limiter paces.
func (l *Limiter) Store() string {
	return l.store
}
