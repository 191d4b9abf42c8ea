// Package mapping defines the static mapping table translating control
// surface coordinates (channel, control) into handler specs, with optional
// per-layer variants and folder overlays.
package mapping

// HandlerSpec describes one handler to instantiate. Kind selects a factory
// from the dispatch registry; Params carries kind-specific settings.
// Composite kinds nest further specs: Steps for macros, Then/Else for
// toggle-conditional handlers.
type HandlerSpec struct {
	Kind   string         `yaml:"kind" json:"kind"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Steps  []*HandlerSpec `yaml:"steps,omitempty" json:"steps,omitempty"`
	Then   *HandlerSpec   `yaml:"then,omitempty" json:"then,omitempty"`
	Else   *HandlerSpec   `yaml:"else,omitempty" json:"else,omitempty"`
}

// FeedbackSpec describes the visual feedback side effect attached to an
// entry: which indicator to drive and how.
type FeedbackSpec struct {
	Indicator int    `yaml:"indicator" json:"indicator"`
	Mode      string `yaml:"mode,omitempty" json:"mode,omitempty"` // "toggle" (default) or "flash"
}

// Entry maps one control to a handler. Exactly one of Handler (a single
// spec valid on every layer) or Layers (per-layer variants) is set; Name
// and Feedback are shared fields merged into whichever variant resolves.
type Entry struct {
	Name     string               `yaml:"name,omitempty" json:"name,omitempty"`
	Feedback *FeedbackSpec        `yaml:"feedback,omitempty" json:"feedback,omitempty"`
	Handler  *HandlerSpec         `yaml:"handler,omitempty" json:"handler,omitempty"`
	Layers   map[int]*HandlerSpec `yaml:"layers,omitempty" json:"layers,omitempty"`
}

// SpecForLayer returns the handler spec for the given layer.
//
// An entry without per-layer variants matches every layer. An entry WITH
// variants and no variant for the current layer yields nothing; that is a
// deliberate "this control does nothing on this layer", distinct from an
// entry that defines no variants at all.
func (e *Entry) SpecForLayer(layer int) (*HandlerSpec, bool) {
	if e.Layers == nil {
		if e.Handler == nil {
			return nil, false
		}
		return e.Handler, true
	}
	spec, ok := e.Layers[layer]
	if !ok || spec == nil {
		return nil, false
	}
	return spec, true
}

// ControlRef names one control on the surface
type ControlRef struct {
	Channel int `yaml:"channel" json:"channel"`
	Control int `yaml:"control" json:"control"`
}

// ControlMap is the per-channel, per-control entry lookup
type ControlMap map[int]map[int]*Entry

// Lookup returns the entry for (channel, control), if configured
func (m ControlMap) Lookup(channel, control int) (*Entry, bool) {
	controls, ok := m[channel]
	if !ok {
		return nil, false
	}
	entry, ok := controls[control]
	if !ok || entry == nil {
		return nil, false
	}
	return entry, true
}

// Table is the static, loaded-once mapping structure. It is never mutated
// after load; configuration reload swaps a whole new Table atomically
// through a Holder.
type Table struct {
	// Buttons maps press/release controls outside any folder
	Buttons ControlMap `yaml:"buttons,omitempty" json:"buttons,omitempty"`
	// Folders maps folder name to its button overlay table
	Folders map[string]ControlMap `yaml:"folders,omitempty" json:"folders,omitempty"`
	// Relative maps continuous controls interpreted as signed deltas.
	// Checked before Absolute: the relative-table-first precedence is an
	// explicit rule, not inferred from value ranges alone.
	Relative ControlMap `yaml:"relative,omitempty" json:"relative,omitempty"`
	// Absolute maps continuous controls interpreted as positions
	Absolute ControlMap `yaml:"absolute,omitempty" json:"absolute,omitempty"`
	// LayerCycle designates the control whose press cycles the layer state
	LayerCycle *ControlRef `yaml:"layer_cycle,omitempty" json:"layer_cycle,omitempty"`

	// channels is the set of configured channels, built at load time
	channels map[int]struct{}
}

// ChannelConfigured reports whether any table references the channel
func (t *Table) ChannelConfigured(channel int) bool {
	_, ok := t.channels[channel]
	return ok
}

// IsLayerCycle reports whether (channel, control) is the designated
// layer-cycle control
func (t *Table) IsLayerCycle(channel, control int) bool {
	return t.LayerCycle != nil &&
		t.LayerCycle.Channel == channel &&
		t.LayerCycle.Control == control
}

// indexChannels builds the configured-channel set. Called by Validate.
func (t *Table) indexChannels() {
	t.channels = make(map[int]struct{})
	for ch := range t.Buttons {
		t.channels[ch] = struct{}{}
	}
	for ch := range t.Relative {
		t.channels[ch] = struct{}{}
	}
	for ch := range t.Absolute {
		t.channels[ch] = struct{}{}
	}
	for _, overlay := range t.Folders {
		for ch := range overlay {
			t.channels[ch] = struct{}{}
		}
	}
	if t.LayerCycle != nil {
		t.channels[t.LayerCycle.Channel] = struct{}{}
	}
}
