package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
device:
  name: nanoKONTROL2
mapping:
  buttons:
    16:
      32:
        name: play
        handler:
          kind: noop
`

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 5, cfg.Device.PollIntervalMs)
	assert.Equal(t, 2000, cfg.Device.ReconnectIntervalMs)
	assert.Equal(t, 60, cfg.Device.MaxReconnectAttempts)
	assert.Equal(t, 3, cfg.MaxLayers)
	assert.Equal(t, 4, cfg.MaxFolderDepth)
	assert.Equal(t, float64(30), cfg.Rate.ThrottleHz)
	assert.Equal(t, 50, cfg.Rate.DebounceDelayMs)
	assert.Equal(t, 4, cfg.Dispatch.Workers)
	assert.Equal(t, 256, cfg.Dispatch.QueueSize)
	assert.Equal(t, "/ws", cfg.Bridge.Path)
	assert.Equal(t, "state.json", cfg.StatePath)
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, "nanoKONTROL2", cfg.Device.Name)
	assert.Equal(t, 3, cfg.MaxLayers, "defaults survive partial YAML")

	table, err := cfg.LoadMapping()
	require.NoError(t, err)
	_, ok := table.Buttons.Lookup(16, 32)
	assert.True(t, ok)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load([]byte(validConfig + `
max_layers: 5
rate:
  throttle_hz: 60
  debounce_delay_ms: 25
`))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxLayers)
	assert.Equal(t, float64(60), cfg.Rate.ThrottleHz)
	assert.Equal(t, 25*time.Millisecond, cfg.DebounceDelay())
}

func TestValidateRequiresDeviceName(t *testing.T) {
	_, err := Load([]byte(`
mapping:
  buttons: {}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device.name")
}

func TestValidateRequiresMapping(t *testing.T) {
	_, err := Load([]byte(`
device:
  name: nanoKONTROL2
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping")
}

func TestValidateRejectsBadLayerCount(t *testing.T) {
	_, err := Load([]byte(validConfig + "\nmax_layers: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_layers")
}

func TestValidateRejectsNegativeThrottle(t *testing.T) {
	_, err := Load([]byte(validConfig + "\nrate:\n  throttle_hz: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttle_hz")
}

func TestValidateRequiresStateBucketWithNATS(t *testing.T) {
	_, err := Load([]byte(validConfig + "\nnats:\n  url: nats://localhost:4222\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state_bucket")
}

func TestValidateRejectsInvalidInlineMapping(t *testing.T) {
	_, err := Load([]byte(`
device:
  name: nanoKONTROL2
mapping:
  buttons:
    17:
      32:
        handler:
          kind: noop
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel 17")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nanoKONTROL2", cfg.Device.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 2*time.Second, cfg.ReconnectInterval())
	assert.Equal(t, 50*time.Millisecond, cfg.DebounceDelay())
}
