// Package resolve implements the mapping-resolution algorithm: given a
// control event and the layer/folder context, find the single handler spec
// that should run, or decide that the event is consumed or unmapped.
package resolve

import (
	"log/slog"

	"github.com/j0KZ/K2-controller-design-sub000/event"
	"github.com/j0KZ/K2-controller-design-sub000/mapping"
	"github.com/j0KZ/K2-controller-design-sub000/state"
)

// Outcome classifies the result of a resolution attempt
type Outcome int

const (
	// Matched means a handler spec was resolved
	Matched Outcome = iota
	// Consumed means the event was intercepted by the engine itself
	// (layer-cycle press) and must not be dispatched
	Consumed
	// NoMatch means no handler is mapped; not an error, logged at debug
	NoMatch
)

// Result is a resolved handler spec merged with the entry's shared fields
type Result struct {
	Event    event.ControlEvent
	Spec     *mapping.HandlerSpec
	Name     string
	Feedback *mapping.FeedbackSpec
	// Relative is set when the event resolved through the relative table;
	// Delta then carries the signed step count.
	Relative bool
	Delta    int
}

// Engine resolves control events against the active mapping table under
// the current layer and folder state. Resolution itself never mutates
// state, with one documented exception: a press on the designated
// layer-cycle control advances the layer and is consumed here, before
// ordinary resolution.
type Engine struct {
	tables  *mapping.Holder
	layers  *state.Layers
	folders *state.Folders
	logger  *slog.Logger
}

// NewEngine creates a resolution engine
func NewEngine(tables *mapping.Holder, layers *state.Layers, folders *state.Folders, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tables:  tables,
		layers:  layers,
		folders: folders,
		logger:  logger,
	}
}

// Resolve maps one event to at most one handler spec
func (e *Engine) Resolve(ev event.ControlEvent) (Result, Outcome) {
	table := e.tables.Current()

	// Step 1: events on unconfigured channels never match
	if !table.ChannelConfigured(ev.Channel) {
		e.logger.Debug("event on unconfigured channel",
			"channel", ev.Channel, "control", ev.Control)
		return Result{}, NoMatch
	}

	// Step 2: the layer-cycle press is intercepted here and never reaches
	// ordinary resolution
	if ev.Kind == event.Press && table.IsLayerCycle(ev.Channel, ev.Control) {
		layer := e.layers.Cycle()
		e.logger.Debug("layer cycled", "layer", layer)
		return Result{}, Consumed
	}

	switch ev.Kind {
	case event.Press, event.Release:
		return e.resolveButton(table, ev)
	case event.AbsoluteChange, event.RelativeDelta:
		return e.resolveContinuous(table, ev)
	default:
		return Result{}, NoMatch
	}
}

// resolveButton implements steps 3-4: folder overlay first with fallthrough
// to the root button table, then the layer-overlay merge.
func (e *Engine) resolveButton(table *mapping.Table, ev event.ControlEvent) (Result, Outcome) {
	if folder := e.folders.Current(); folder != "" {
		if overlay, ok := table.Folders[folder]; ok {
			if entry, ok := overlay.Lookup(ev.Channel, ev.Control); ok {
				return e.resolveEntry(entry, ev, false)
			}
		}
		// Absent from the current folder: fall through to the root table
	}

	entry, ok := table.Buttons.Lookup(ev.Channel, ev.Control)
	if !ok {
		return e.miss(ev)
	}
	return e.resolveEntry(entry, ev, false)
}

// resolveContinuous implements step 5: the relative table is checked first,
// as an explicit precedence rule. A control configured relative swallows
// the no-movement values 0 and 64 instead of falling through to the
// absolute table.
func (e *Engine) resolveContinuous(table *mapping.Table, ev event.ControlEvent) (Result, Outcome) {
	if entry, ok := table.Relative.Lookup(ev.Channel, ev.Control); ok {
		direction, delta := event.ClassifyRelative(ev.Value)
		if direction == event.DirectionNone {
			e.logger.Debug("relative value carries no movement",
				"channel", ev.Channel, "control", ev.Control, "value", ev.Value)
			return Result{}, NoMatch
		}
		result, outcome := e.resolveEntry(entry, ev, true)
		if outcome == Matched {
			result.Delta = delta
			result.Event.Kind = event.RelativeDelta
		}
		return result, outcome
	}

	if entry, ok := table.Absolute.Lookup(ev.Channel, ev.Control); ok {
		return e.resolveEntry(entry, ev, false)
	}

	return e.miss(ev)
}

// resolveEntry applies the layer-overlay step: a per-layer variant is merged
// with the entry's shared fields; an entry with variants but none for the
// current layer yields no handler.
func (e *Engine) resolveEntry(entry *mapping.Entry, ev event.ControlEvent, relative bool) (Result, Outcome) {
	spec, ok := entry.SpecForLayer(e.layers.Current())
	if !ok {
		e.logger.Debug("no variant for active layer",
			"channel", ev.Channel, "control", ev.Control,
			"layer", e.layers.Current(), "name", entry.Name)
		return Result{}, NoMatch
	}

	return Result{
		Event:    ev,
		Spec:     spec,
		Name:     entry.Name,
		Feedback: entry.Feedback,
		Relative: relative,
	}, Matched
}

func (e *Engine) miss(ev event.ControlEvent) (Result, Outcome) {
	e.logger.Debug("no mapping for event",
		"kind", ev.Kind.String(), "channel", ev.Channel,
		"control", ev.Control, "value", ev.Value)
	return Result{}, NoMatch
}
