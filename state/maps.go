package state

import "sync"

// Toggles holds per-control boolean states (e.g. mute buttons).
// Replaces implicit class-level dictionaries with an owned, locked map.
type Toggles struct {
	mu sync.Mutex
	m  map[string]bool
}

// NewToggles creates an empty toggle map
func NewToggles() *Toggles {
	return &Toggles{m: make(map[string]bool)}
}

// Flip inverts the toggle for key and returns the new state
func (t *Toggles) Flip(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[key] = !t.m[key]
	return t.m[key]
}

// Get returns the toggle state for key (false if never set)
func (t *Toggles) Get(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m[key]
}

// Set forces the toggle state for key
func (t *Toggles) Set(key string, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[key] = on
}

// Snapshot returns the toggles as a scalar map for persistence
func (t *Toggles) Snapshot() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.m))
	for k, v := range t.m {
		if v {
			out[k] = 1
		} else {
			out[k] = 0
		}
	}
	return out
}

// Restore replaces the toggle states from a persisted scalar map
func (t *Toggles) Restore(m map[string]int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m = make(map[string]bool, len(m))
	for k, v := range m {
		t.m[k] = v != 0
	}
}

// Counters holds named accumulators (e.g. relative-encoder totals).
type Counters struct {
	mu sync.Mutex
	m  map[string]int64
}

// NewCounters creates an empty counter map
func NewCounters() *Counters {
	return &Counters{m: make(map[string]int64)}
}

// Add applies a signed delta to key and returns the new value
func (c *Counters) Add(key string, delta int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] += delta
	return c.m[key]
}

// Get returns the counter value for key (zero if never set)
func (c *Counters) Get(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[key]
}

// Reset clears the counter for key
func (c *Counters) Reset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// Snapshot returns the counters as a scalar map for persistence
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

// Restore replaces the counters from a persisted scalar map
func (c *Counters) Restore(m map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]int64, len(m))
	for k, v := range m {
		c.m[k] = v
	}
}

// Positions holds the last-known value of each analog control. New broadcast
// subscribers receive this map as their initial snapshot frame.
type Positions struct {
	mu sync.Mutex
	m  map[string]int
}

// NewPositions creates an empty position map
func NewPositions() *Positions {
	return &Positions{m: make(map[string]int)}
}

// Set records the latest value for key
func (p *Positions) Set(key string, value int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = value
}

// Get returns the last-known value for key
func (p *Positions) Get(key string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	return v, ok
}

// Snapshot returns a copy of all positions
func (p *Positions) Snapshot() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.m))
	for k, v := range p.m {
		out[k] = v
	}
	return out
}

// SnapshotScalar returns the positions as a scalar map for persistence
func (p *Positions) SnapshotScalar() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int64, len(p.m))
	for k, v := range p.m {
		out[k] = int64(v)
	}
	return out
}

// Restore replaces the positions from a persisted scalar map
func (p *Positions) Restore(m map[string]int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m = make(map[string]int, len(m))
	for k, v := range m {
		p.m[k] = int(v)
	}
}
