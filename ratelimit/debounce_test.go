package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flushRecorder collects flush callbacks thread-safely
type flushRecorder struct {
	mu      sync.Mutex
	flushes []int
}

func (r *flushRecorder) record(_ string, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes = append(r.flushes, value)
}

func (r *flushRecorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.flushes...)
}

func TestDebouncerBurstFlushesFinalValueOnce(t *testing.T) {
	rec := &flushRecorder{}
	d := NewDebouncer(20*time.Millisecond, rec.record)
	defer d.Stop()

	for _, v := range []int{10, 50, 100, 127} {
		d.Submit("1:7", v)
	}

	require.Eventually(t, func() bool {
		return len(rec.values()) > 0
	}, time.Second, 5*time.Millisecond)

	// After the delay there is exactly one flush, carrying the last value
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []int{127}, rec.values())
	assert.False(t, d.Pending("1:7"))
}

func TestDebouncerPending(t *testing.T) {
	rec := &flushRecorder{}
	d := NewDebouncer(50*time.Millisecond, rec.record)
	defer d.Stop()

	assert.False(t, d.Pending("1:7"))
	d.Submit("1:7", 42)
	assert.True(t, d.Pending("1:7"))
}

func TestDebouncerCancel(t *testing.T) {
	rec := &flushRecorder{}
	d := NewDebouncer(20*time.Millisecond, rec.record)
	defer d.Stop()

	d.Submit("1:7", 42)
	d.Cancel("1:7")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.values())
	assert.False(t, d.Pending("1:7"))
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	rec := &flushRecorder{}
	d := NewDebouncer(20*time.Millisecond, rec.record)
	defer d.Stop()

	d.Submit("1:7", 1)
	d.Submit("1:8", 2)

	require.Eventually(t, func() bool {
		return len(rec.values()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []int{1, 2}, rec.values())
}

func TestDebouncerStopDropsEverything(t *testing.T) {
	rec := &flushRecorder{}
	d := NewDebouncer(20*time.Millisecond, rec.record)

	d.Submit("1:7", 42)
	d.Stop()
	d.Submit("1:8", 43) // ignored after Stop

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.values())
}
