// Package config loads and validates the router configuration: device
// identity, rate-control policy, mapping table location, broadcast and
// metrics endpoints, and optional NATS-backed persistence.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/j0KZ/K2-controller-design-sub000/errors"
	"github.com/j0KZ/K2-controller-design-sub000/mapping"
)

// DeviceConfig identifies the control surface and the ingestion timing
type DeviceConfig struct {
	// Name is matched as a substring against the MIDI device name
	Name string `yaml:"name"`
	// PollIntervalMs is the fixed poll interval (default 5)
	PollIntervalMs int `yaml:"poll_interval_ms"`
	// ReconnectIntervalMs is the backoff between open attempts (default 2000)
	ReconnectIntervalMs int `yaml:"reconnect_interval_ms"`
	// MaxReconnectAttempts is the ceiling before the listener stops for
	// good (default 60)
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
}

// RateConfig is the rate-control policy for continuous controls
type RateConfig struct {
	// ThrottleHz caps per-control processing frequency (default 30)
	ThrottleHz float64 `yaml:"throttle_hz"`
	// DebounceDelayMs is the trailing-edge coalescing delay (default 50)
	DebounceDelayMs int `yaml:"debounce_delay_ms"`
}

// DispatchConfig sizes the handler worker pool
type DispatchConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// BridgeConfig configures the broadcast endpoint
type BridgeConfig struct {
	Addr              string `yaml:"addr"`
	Path              string `yaml:"path"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`
}

// NATSConfig enables the optional NATS integration (state bucket and frame
// mirror). Empty URL disables it.
type NATSConfig struct {
	URL         string `yaml:"url"`
	StateBucket string `yaml:"state_bucket"`
}

// Config is the complete router configuration
type Config struct {
	Device    DeviceConfig   `yaml:"device"`
	MaxLayers int            `yaml:"max_layers"`
	MaxFolderDepth int       `yaml:"max_folder_depth"`
	Rate      RateConfig     `yaml:"rate"`
	Dispatch  DispatchConfig `yaml:"dispatch"`
	Bridge    BridgeConfig   `yaml:"bridge"`
	// MetricsAddr serves /metrics when set (e.g. ":9090")
	MetricsAddr string `yaml:"metrics_addr"`
	NATS        NATSConfig `yaml:"nats"`
	// StatePath is the JSON state file used when NATS persistence is off
	StatePath string `yaml:"state_path"`
	// MappingFile points at the mapping table; Mapping may instead inline it
	MappingFile string         `yaml:"mapping_file"`
	Mapping     *mapping.Table `yaml:"mapping"`
}

// Default returns the configuration defaults
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			PollIntervalMs:       5,
			ReconnectIntervalMs:  2000,
			MaxReconnectAttempts: 60,
		},
		MaxLayers:      3,
		MaxFolderDepth: 4,
		Rate: RateConfig{
			ThrottleHz:      30,
			DebounceDelayMs: 50,
		},
		Dispatch: DispatchConfig{
			Workers:   4,
			QueueSize: 256,
		},
		Bridge: BridgeConfig{
			Path: "/ws",
		},
		StatePath: "state.json",
	}
}

// LoadFile reads, defaults, and validates a configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapTransient(err, "config", "LoadFile", "read config file")
	}
	return Load(data)
}

// Load parses, defaults, and validates configuration YAML
func Load(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parse config YAML")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would corrupt router state
func (c *Config) Validate() error {
	if c.Device.Name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: device.name", errors.ErrMissingConfig),
			"config", "Validate", "device name validation")
	}
	if c.MaxLayers < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: max_layers must be >= 1, got %d", errors.ErrInvalidConfig, c.MaxLayers),
			"config", "Validate", "layer count validation")
	}
	if c.MaxFolderDepth < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: max_folder_depth must be >= 1, got %d", errors.ErrInvalidConfig, c.MaxFolderDepth),
			"config", "Validate", "folder depth validation")
	}
	if c.Rate.ThrottleHz < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: rate.throttle_hz cannot be negative", errors.ErrInvalidConfig),
			"config", "Validate", "throttle validation")
	}
	if c.Rate.DebounceDelayMs < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: rate.debounce_delay_ms cannot be negative", errors.ErrInvalidConfig),
			"config", "Validate", "debounce validation")
	}
	if c.MappingFile == "" && c.Mapping == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: either mapping_file or mapping", errors.ErrMissingConfig),
			"config", "Validate", "mapping validation")
	}
	if c.NATS.URL != "" && c.NATS.StateBucket == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nats.state_bucket required with nats.url", errors.ErrMissingConfig),
			"config", "Validate", "NATS validation")
	}
	if c.Mapping != nil {
		if err := c.Mapping.Validate(c.MaxLayers); err != nil {
			return err
		}
	}
	return nil
}

// LoadMapping returns the validated mapping table, reading MappingFile when
// the table is not inlined.
func (c *Config) LoadMapping() (*mapping.Table, error) {
	if c.Mapping != nil {
		return c.Mapping, nil
	}
	return mapping.LoadFile(c.MappingFile, c.MaxLayers)
}

// PollInterval returns the device poll interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Device.PollIntervalMs) * time.Millisecond
}

// ReconnectInterval returns the reconnect backoff as a duration
func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.Device.ReconnectIntervalMs) * time.Millisecond
}

// DebounceDelay returns the debounce delay as a duration
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Rate.DebounceDelayMs) * time.Millisecond
}
