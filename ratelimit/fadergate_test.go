package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaderGateExtremeValuesBypassThrottle(t *testing.T) {
	rec := &flushRecorder{}
	g := NewFaderGate(10, 50*time.Millisecond, rec.record)
	defer g.Stop()

	// Exhaust the throttle token for this key
	assert.True(t, g.Offer("1:7", 60))
	assert.False(t, g.Offer("1:7", 61), "mid-range value inside the interval")

	// Extremes pass immediately regardless of the throttle
	assert.True(t, g.Offer("1:7", 0))
	assert.True(t, g.Offer("1:7", 127))
}

func TestFaderGateThrottledValueStillFlushes(t *testing.T) {
	rec := &flushRecorder{}
	g := NewFaderGate(10, 20*time.Millisecond, rec.record)
	defer g.Stop()

	assert.True(t, g.Offer("1:7", 60))
	assert.False(t, g.Offer("1:7", 99), "throttled")
	assert.True(t, g.Pending("1:7"))

	// The trailing flush delivers the last value even though it was throttled
	require.Eventually(t, func() bool {
		values := rec.values()
		return len(values) > 0 && values[len(values)-1] == 99
	}, time.Second, 5*time.Millisecond)
}

func TestFaderGateImmediatePassSupersedesFlush(t *testing.T) {
	rec := &flushRecorder{}
	g := NewFaderGate(10, 20*time.Millisecond, rec.record)
	defer g.Stop()

	assert.True(t, g.Offer("1:7", 60))
	assert.False(t, g.Offer("1:7", 61), "throttled, flush scheduled")
	assert.True(t, g.Offer("1:7", 127), "extreme pass cancels the flush")
	assert.False(t, g.Pending("1:7"))

	// No trailing duplicate arrives after the delay
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []int{60, 127}, rec.values())
}

func TestFaderGateReset(t *testing.T) {
	rec := &flushRecorder{}
	g := NewFaderGate(10, 50*time.Millisecond, rec.record)
	defer g.Stop()

	assert.True(t, g.Offer("1:7", 60))
	assert.False(t, g.Offer("1:7", 61))

	g.Reset("1:7")
	assert.False(t, g.Pending("1:7"))
	assert.True(t, g.Offer("1:7", 62), "reset clears throttle state")
}
