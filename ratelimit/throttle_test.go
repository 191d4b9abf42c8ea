package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleFirstCallPasses(t *testing.T) {
	throttle := NewThrottle(10)
	assert.True(t, throttle.Allow("1:7"))
}

func TestThrottleBackToBackDenied(t *testing.T) {
	throttle := NewThrottle(10)

	assert.True(t, throttle.Allow("1:7"))
	assert.False(t, throttle.Allow("1:7"), "second call inside the interval")
}

func TestThrottleRecoversAfterInterval(t *testing.T) {
	// 50 Hz keeps the test fast: the token refills after 20ms
	throttle := NewThrottle(50)

	assert.True(t, throttle.Allow("1:7"))
	assert.False(t, throttle.Allow("1:7"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, throttle.Allow("1:7"))
}

func TestThrottleKeysAreIndependent(t *testing.T) {
	throttle := NewThrottle(10)

	assert.True(t, throttle.Allow("1:7"))
	assert.True(t, throttle.Allow("1:8"), "a different control has its own limiter")
}

func TestThrottleDisabledPassesEverything(t *testing.T) {
	throttle := NewThrottle(0)
	for i := 0; i < 100; i++ {
		assert.True(t, throttle.Allow("1:7"))
	}
}

func TestThrottleReset(t *testing.T) {
	throttle := NewThrottle(10)

	assert.True(t, throttle.Allow("1:7"))
	assert.False(t, throttle.Allow("1:7"))

	throttle.Reset("1:7")
	assert.True(t, throttle.Allow("1:7"), "reset forgets the key")
}
