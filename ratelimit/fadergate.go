package ratelimit

import (
	"time"

	"github.com/j0KZ/K2-controller-design-sub000/event"
)

// FaderGate composes throttle and debounce for fader-type controls:
//   - throttled values are captured by the debouncer, so the final value of a
//     burst is always applied even when intermediates were dropped;
//   - values at an extreme of the range (0 or 127) bypass the throttle and
//     always process immediately.
//
// An immediate pass supersedes any scheduled flush for the same control: the
// value just processed is the latest, so a trailing reapplication would only
// duplicate it.
type FaderGate struct {
	throttle  *Throttle
	debouncer *Debouncer
	process   FlushFunc
	onFlush   FlushFunc
}

// NewFaderGate creates the composed rate control. process is the downstream
// callback invoked both for immediate passes and for debounced flushes.
func NewFaderGate(maxHz float64, debounceDelay time.Duration, process FlushFunc) *FaderGate {
	g := &FaderGate{
		throttle: NewThrottle(maxHz),
		process:  process,
	}
	g.debouncer = NewDebouncer(debounceDelay, func(key string, value int) {
		if g.onFlush != nil {
			g.onFlush(key, value)
		}
		process(key, value)
	})
	return g
}

// OnFlush registers an observer invoked for trailing flushes only, before
// the downstream callback. Must be set before the gate is first offered to.
func (g *FaderGate) OnFlush(fn FlushFunc) {
	g.onFlush = fn
}

// Offer submits value for key. It returns true when the value was processed
// immediately (extreme bypass or throttle pass) and false when it was only
// captured by the debouncer for a trailing flush.
func (g *FaderGate) Offer(key string, value int) bool {
	if value == event.ValueMin || value == event.ValueMax || g.throttle.Allow(key) {
		g.debouncer.Cancel(key)
		g.process(key, value)
		return true
	}

	g.debouncer.Submit(key, value)
	return false
}

// Pending reports whether a trailing flush is scheduled for key
func (g *FaderGate) Pending(key string) bool {
	return g.debouncer.Pending(key)
}

// Reset clears throttle state and any scheduled flush for key
func (g *FaderGate) Reset(key string) {
	g.throttle.Reset(key)
	g.debouncer.Cancel(key)
}

// Stop cancels all scheduled flushes
func (g *FaderGate) Stop() {
	g.debouncer.Stop()
}
