// Package state owns the mutable mapping context: the active layer, the
// folder overlay stack, and the toggle/counter/position maps that handlers
// read and the broadcast snapshot is built from.
//
// Every structure here guards its own data with its own mutex and notifies
// observers outside the lock, so an observer may safely call back into the
// same component.
package state

import "sync"

// DefaultLayerCount is the number of mapping layers when none is configured
const DefaultLayerCount = 3

// LayerObserver is notified with the newly active layer after a change
type LayerObserver func(layer int)

// Layers is the cyclic layer state: which "page" of mappings is active.
// Layers are numbered 1..count.
type Layers struct {
	mu        sync.Mutex
	current   int
	count     int
	observers []LayerObserver
}

// NewLayers creates layer state starting at layer 1 of count
func NewLayers(count int) *Layers {
	if count <= 0 {
		count = DefaultLayerCount
	}
	return &Layers{current: 1, count: count}
}

// Current returns the active layer
func (l *Layers) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Count returns the number of layers
func (l *Layers) Count() int {
	return l.count
}

// Cycle advances to the next layer, wrapping from count back to 1,
// and returns the new layer.
func (l *Layers) Cycle() int {
	l.mu.Lock()
	l.current++
	if l.current > l.count {
		l.current = 1
	}
	current := l.current
	observers := l.observers
	l.mu.Unlock()

	for _, fn := range observers {
		fn(current)
	}
	return current
}

// Set activates layer n. It rejects out-of-range values and no-op
// same-value sets, returning false without notifying observers.
func (l *Layers) Set(n int) bool {
	l.mu.Lock()
	if n < 1 || n > l.count || n == l.current {
		l.mu.Unlock()
		return false
	}
	l.current = n
	observers := l.observers
	l.mu.Unlock()

	for _, fn := range observers {
		fn(n)
	}
	return true
}

// Observe registers an observer for layer changes
func (l *Layers) Observe(fn LayerObserver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}
