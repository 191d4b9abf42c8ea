// Package ratelimit implements the rate-control policies applied to
// continuous-control events before mapping resolution: a per-key throttle
// that drops events arriving faster than a frequency cap, a per-key
// trailing-edge debouncer that guarantees the final value of a burst is
// applied, and the fader gate composing both with an extreme-value bypass.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Throttle caps processing frequency per key. Calls inside the minimum
// inter-processing interval are dropped, not queued. The first call for a
// key always passes.
type Throttle struct {
	mu       sync.Mutex
	limit    rate.Limit
	limiters map[string]*rate.Limiter
}

// NewThrottle creates a throttle allowing at most maxHz calls per second
// per key. A non-positive maxHz disables throttling (everything passes).
func NewThrottle(maxHz float64) *Throttle {
	limit := rate.Inf
	if maxHz > 0 {
		limit = rate.Limit(maxHz)
	}
	return &Throttle{
		limit:    limit,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a call for key may be processed now. Limiters are
// created lazily on first sight of a key; the set of keys is bounded by the
// number of distinct controls, so entries are never evicted.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	limiter, ok := t.limiters[key]
	if !ok {
		// Burst of 1: first call passes, then one token per interval
		limiter = rate.NewLimiter(t.limit, 1)
		t.limiters[key] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow()
}

// Reset forgets the throttle state for key, so the next call passes
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.limiters, key)
}
