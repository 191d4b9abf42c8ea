package ratelimit

import (
	"sync"
	"time"
)

// FlushFunc receives the final value of a burst when the debounce delay
// elapses without a newer submission for the same key.
type FlushFunc func(key string, value int)

type debounceEntry struct {
	value int
	seq   uint64
	timer *time.Timer
}

// Debouncer coalesces bursts per key on the trailing edge. Every submission
// records the latest value and reschedules the flush, cancelling the
// previously scheduled one; only the flush invokes the downstream callback.
// The superseding call always wins: a timer that fires concurrently with a
// newer submission checks its sequence number and gives way.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	flush   FlushFunc
	pending map[string]*debounceEntry
	stopped bool
}

// NewDebouncer creates a debouncer with the given trailing delay
func NewDebouncer(delay time.Duration, flush FlushFunc) *Debouncer {
	return &Debouncer{
		delay:   delay,
		flush:   flush,
		pending: make(map[string]*debounceEntry),
	}
}

// Submit records value for key and (re)schedules the flush after the delay
func (d *Debouncer) Submit(key string, value int) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	entry, ok := d.pending[key]
	if ok {
		entry.timer.Stop()
		entry.value = value
		entry.seq++
	} else {
		entry = &debounceEntry{value: value}
		d.pending[key] = entry
	}

	seq := entry.seq
	entry.timer = time.AfterFunc(d.delay, func() {
		d.fire(key, seq)
	})
	d.mu.Unlock()
}

// Pending reports whether a flush is scheduled for key
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Cancel drops a scheduled flush for key without invoking the callback
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.pending[key]; ok {
		entry.timer.Stop()
		delete(d.pending, key)
	}
}

// Stop cancels all scheduled flushes. Further submissions are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, key)
	}
}

// fire runs on the timer goroutine when the delay elapses
func (d *Debouncer) fire(key string, seq uint64) {
	d.mu.Lock()
	entry, ok := d.pending[key]
	if !ok || entry.seq != seq {
		// Superseded or cancelled while the timer was firing
		d.mu.Unlock()
		return
	}
	value := entry.value
	delete(d.pending, key)
	flush := d.flush
	d.mu.Unlock()

	flush(key, value)
}
