package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTogglesFlip(t *testing.T) {
	toggles := NewToggles()

	assert.False(t, toggles.Get("mute"))
	assert.True(t, toggles.Flip("mute"))
	assert.True(t, toggles.Get("mute"))
	assert.False(t, toggles.Flip("mute"))
	assert.False(t, toggles.Get("mute"))
}

func TestTogglesSnapshotRestore(t *testing.T) {
	toggles := NewToggles()
	toggles.Set("a", true)
	toggles.Set("b", false)

	restored := NewToggles()
	restored.Restore(toggles.Snapshot())

	assert.True(t, restored.Get("a"))
	assert.False(t, restored.Get("b"))
}

func TestCountersAccumulate(t *testing.T) {
	counters := NewCounters()

	assert.Equal(t, int64(3), counters.Add("jog", 3))
	assert.Equal(t, int64(1), counters.Add("jog", -2))
	assert.Equal(t, int64(1), counters.Get("jog"))
	assert.Equal(t, int64(0), counters.Get("unknown"))

	counters.Reset("jog")
	assert.Equal(t, int64(0), counters.Get("jog"))
}

func TestCountersSnapshotRestore(t *testing.T) {
	counters := NewCounters()
	counters.Add("a", 5)
	counters.Add("b", -7)

	restored := NewCounters()
	restored.Restore(counters.Snapshot())

	assert.Equal(t, int64(5), restored.Get("a"))
	assert.Equal(t, int64(-7), restored.Get("b"))
}

func TestPositions(t *testing.T) {
	positions := NewPositions()

	_, ok := positions.Get("1:7")
	assert.False(t, ok)

	positions.Set("1:7", 100)
	v, ok := positions.Get("1:7")
	assert.True(t, ok)
	assert.Equal(t, 100, v)

	snap := positions.Snapshot()
	assert.Equal(t, map[string]int{"1:7": 100}, snap)

	// The snapshot is a copy
	snap["1:7"] = 0
	v, _ = positions.Get("1:7")
	assert.Equal(t, 100, v)
}

func TestPositionsScalarRoundTrip(t *testing.T) {
	positions := NewPositions()
	positions.Set("1:7", 42)
	positions.Set("2:14", 127)

	restored := NewPositions()
	restored.Restore(positions.SnapshotScalar())

	v, ok := restored.Get("1:7")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	v, ok = restored.Get("2:14")
	assert.True(t, ok)
	assert.Equal(t, 127, v)
}
