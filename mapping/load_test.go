package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validMapping = `
buttons:
  16:
    32:
      name: play
      handler:
        kind: noop
    36:
      name: cue
      layers:
        1:
          kind: noop
        3:
          kind: noop
folders:
  transport:
    16:
      32:
        name: rewind
        handler:
          kind: noop
relative:
  16:
    40:
      name: jog
      handler:
        kind: counter
        params:
          key: jog
absolute:
  16:
    7:
      name: fader
      handler:
        kind: noop
layer_cycle:
  channel: 16
  control: 12
`

func TestLoadValidMapping(t *testing.T) {
	table, err := Load([]byte(validMapping), 3)
	require.NoError(t, err)

	entry, ok := table.Buttons.Lookup(16, 32)
	require.True(t, ok)
	assert.Equal(t, "play", entry.Name)

	assert.True(t, table.ChannelConfigured(16))
	assert.False(t, table.ChannelConfigured(1))
	assert.True(t, table.IsLayerCycle(16, 12))
	assert.False(t, table.IsLayerCycle(16, 13))
}

func TestLoadRejectsChannelOutOfRange(t *testing.T) {
	_, err := Load([]byte(`
buttons:
  17:
    32:
      handler:
        kind: noop
`), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel 17 out of range")
}

func TestLoadRejectsControlOutOfRange(t *testing.T) {
	_, err := Load([]byte(`
buttons:
  16:
    128:
      handler:
        kind: noop
`), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control 128 out of range")
}

func TestLoadRejectsBothHandlerAndLayers(t *testing.T) {
	_, err := Load([]byte(`
buttons:
  16:
    32:
      handler:
        kind: noop
      layers:
        1:
          kind: noop
`), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both handler and layers")
}

func TestLoadRejectsEmptyEntry(t *testing.T) {
	_, err := Load([]byte(`
buttons:
  16:
    32:
      name: nothing
`), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither handler nor layers")
}

func TestLoadRejectsLayerOutOfRange(t *testing.T) {
	_, err := Load([]byte(`
buttons:
  16:
    32:
      layers:
        4:
          kind: noop
`), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layer 4 out of range")
}

func TestLoadRejectsMissingHandlerKind(t *testing.T) {
	_, err := Load([]byte(`
buttons:
  16:
    32:
      handler:
        params:
          key: x
`), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler kind missing")
}

func TestSpecForLayer(t *testing.T) {
	shared := &Entry{Handler: &HandlerSpec{Kind: "noop"}}
	spec, ok := shared.SpecForLayer(1)
	assert.True(t, ok)
	assert.Equal(t, "noop", spec.Kind)
	_, ok = shared.SpecForLayer(3)
	assert.True(t, ok, "entry without variants matches every layer")

	variants := &Entry{Layers: map[int]*HandlerSpec{
		1: {Kind: "a"},
		3: {Kind: "b"},
	}}
	spec, ok = variants.SpecForLayer(1)
	assert.True(t, ok)
	assert.Equal(t, "a", spec.Kind)
	_, ok = variants.SpecForLayer(2)
	assert.False(t, ok, "variants with no match yield nothing")
}

func TestControlMapLookup(t *testing.T) {
	m := ControlMap{16: {32: &Entry{Name: "play", Handler: &HandlerSpec{Kind: "noop"}}}}

	entry, ok := m.Lookup(16, 32)
	assert.True(t, ok)
	assert.Equal(t, "play", entry.Name)

	_, ok = m.Lookup(16, 33)
	assert.False(t, ok)
	_, ok = m.Lookup(1, 32)
	assert.False(t, ok)
}

func TestHolderSwap(t *testing.T) {
	first, err := Load([]byte(validMapping), 3)
	require.NoError(t, err)
	holder := NewHolder(first)
	assert.Same(t, first, holder.Current())

	second, err := Load([]byte(`
buttons:
  1:
    32:
      handler:
        kind: noop
`), 3)
	require.NoError(t, err)
	holder.Swap(second)
	assert.Same(t, second, holder.Current())
}
