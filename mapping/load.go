package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/j0KZ/K2-controller-design-sub000/errors"
)

// MIDI channel and controller bounds
const (
	minChannel = 1
	maxChannel = 16
	minControl = 0
	maxControl = 127
)

// LoadFile reads and validates a mapping table from a YAML file
func LoadFile(path string, layerCount int) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapTransient(err, "mapping", "LoadFile", "read mapping file")
	}
	return Load(data, layerCount)
}

// Load parses and validates a mapping table from YAML bytes
func Load(data []byte, layerCount int) (*Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.WrapInvalid(err, "mapping", "Load", "parse mapping YAML")
	}
	if err := table.Validate(layerCount); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks the table against the layer count and MIDI bounds, and
// builds the configured-channel index. Malformed tables are rejected at
// load time, never silently corrupting resolution.
func (t *Table) Validate(layerCount int) error {
	if err := t.validateControlMap("buttons", t.Buttons, layerCount); err != nil {
		return err
	}
	if err := t.validateControlMap("relative", t.Relative, layerCount); err != nil {
		return err
	}
	if err := t.validateControlMap("absolute", t.Absolute, layerCount); err != nil {
		return err
	}
	for name, overlay := range t.Folders {
		if name == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig,
				"mapping", "Validate", "folder with empty name")
		}
		if err := t.validateControlMap("folders."+name, overlay, layerCount); err != nil {
			return err
		}
	}
	if t.LayerCycle != nil {
		if err := validateRef("layer_cycle", t.LayerCycle.Channel, t.LayerCycle.Control); err != nil {
			return err
		}
	}

	t.indexChannels()
	return nil
}

func (t *Table) validateControlMap(section string, m ControlMap, layerCount int) error {
	for channel, controls := range m {
		for control, entry := range controls {
			where := fmt.Sprintf("%s[%d][%d]", section, channel, control)
			if err := validateRef(where, channel, control); err != nil {
				return err
			}
			if entry == nil {
				return errors.WrapInvalid(
					fmt.Errorf("%s: empty entry", where),
					"mapping", "Validate", "entry validation")
			}
			if err := entry.validate(where, layerCount); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRef(where string, channel, control int) error {
	if channel < minChannel || channel > maxChannel {
		return errors.WrapInvalid(
			fmt.Errorf("%s: channel %d out of range %d..%d", where, channel, minChannel, maxChannel),
			"mapping", "Validate", "channel validation")
	}
	if control < minControl || control > maxControl {
		return errors.WrapInvalid(
			fmt.Errorf("%s: control %d out of range %d..%d", where, control, minControl, maxControl),
			"mapping", "Validate", "control validation")
	}
	return nil
}

func (e *Entry) validate(where string, layerCount int) error {
	if e.Handler != nil && e.Layers != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%s: both handler and layers set", where),
			"mapping", "Validate", "entry validation")
	}
	if e.Handler == nil && len(e.Layers) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%s: neither handler nor layers set", where),
			"mapping", "Validate", "entry validation")
	}
	if e.Handler != nil {
		if err := e.Handler.validate(where); err != nil {
			return err
		}
	}
	for layer, spec := range e.Layers {
		if layer < 1 || layer > layerCount {
			return errors.WrapInvalid(
				fmt.Errorf("%s: layer %d out of range 1..%d", where, layer, layerCount),
				"mapping", "Validate", "layer validation")
		}
		if spec == nil {
			return errors.WrapInvalid(
				fmt.Errorf("%s: empty spec for layer %d", where, layer),
				"mapping", "Validate", "layer validation")
		}
		if err := spec.validate(fmt.Sprintf("%s.layer_%d", where, layer)); err != nil {
			return err
		}
	}
	if e.Feedback != nil {
		if e.Feedback.Indicator < minControl || e.Feedback.Indicator > maxControl {
			return errors.WrapInvalid(
				fmt.Errorf("%s: feedback indicator %d out of range", where, e.Feedback.Indicator),
				"mapping", "Validate", "feedback validation")
		}
	}
	return nil
}

func (s *HandlerSpec) validate(where string) error {
	if s.Kind == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%s: handler kind missing", where),
			"mapping", "Validate", "handler kind validation")
	}
	for i, step := range s.Steps {
		if step == nil {
			return errors.WrapInvalid(
				fmt.Errorf("%s: empty macro step %d", where, i),
				"mapping", "Validate", "macro validation")
		}
		if err := step.validate(fmt.Sprintf("%s.steps[%d]", where, i)); err != nil {
			return err
		}
	}
	if s.Then != nil {
		if err := s.Then.validate(where + ".then"); err != nil {
			return err
		}
	}
	if s.Else != nil {
		if err := s.Else.validate(where + ".else"); err != nil {
			return err
		}
	}
	return nil
}
