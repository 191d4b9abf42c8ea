package dispatch

import (
	"fmt"
	"log/slog"

	"github.com/j0KZ/K2-controller-design-sub000/event"
	"github.com/j0KZ/K2-controller-design-sub000/mapping"
)

// Builtin handler kinds. Concrete application handlers (hotkeys, service
// calls, sounds) are registered by the embedder through the same registry.
const (
	KindNoop    = "noop"
	KindMacro   = "macro"
	KindToggle  = "toggle"
	KindCounter = "counter"
)

func registerBuiltins(r *Registry) {
	r.Register(KindNoop, newNoop)
	r.Register(KindMacro, newMacro)
	r.Register(KindToggle, newToggle)
	r.Register(KindCounter, newCounter)
}

// stringParam reads a string parameter from the spec
func stringParam(spec *mapping.HandlerSpec, name string) (string, bool) {
	v, ok := spec.Params[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// noopHandler does nothing; useful to explicitly mask a control on a layer
type noopHandler struct{}

func newNoop(_ *mapping.HandlerSpec, _ Context) (Handler, error) {
	return noopHandler{}, nil
}

func (noopHandler) Execute(event.ControlEvent) {}

// macroHandler runs a fixed sequence of nested handlers. The steps are
// built once at construction time, each one level deeper in the context.
type macroHandler struct {
	steps []Handler
}

func newMacro(spec *mapping.HandlerSpec, ctx Context) (Handler, error) {
	if len(spec.Steps) == 0 {
		return nil, fmt.Errorf("macro without steps")
	}
	steps := make([]Handler, 0, len(spec.Steps))
	for i, stepSpec := range spec.Steps {
		step, err := ctx.Registry.Build(stepSpec, ctx.Child())
		if err != nil {
			return nil, fmt.Errorf("macro step %d: %w", i, err)
		}
		steps = append(steps, step)
	}
	return &macroHandler{steps: steps}, nil
}

func (m *macroHandler) Execute(ev event.ControlEvent) {
	for _, step := range m.steps {
		step.Execute(ev)
	}
}

// toggleHandler flips a named boolean state on every press and runs the
// then-branch while the toggle is on, the else-branch while it is off.
// Branches are instantiated at execute time through the registry, one level
// deeper, so the depth cap also covers conditional chains.
type toggleHandler struct {
	key      string
	thenSpec *mapping.HandlerSpec
	elseSpec *mapping.HandlerSpec
	ctx      Context
	logger   *slog.Logger
}

func newToggle(spec *mapping.HandlerSpec, ctx Context) (Handler, error) {
	key, ok := stringParam(spec, "key")
	if !ok || key == "" {
		return nil, fmt.Errorf("toggle without 'key' param")
	}
	if ctx.Toggles == nil {
		return nil, fmt.Errorf("toggle handler requires toggle state")
	}
	logger := ctx.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &toggleHandler{
		key:      key,
		thenSpec: spec.Then,
		elseSpec: spec.Else,
		ctx:      ctx,
		logger:   logger,
	}, nil
}

func (t *toggleHandler) Execute(ev event.ControlEvent) {
	on := t.ctx.Toggles.Flip(t.key)

	branch := t.elseSpec
	if on {
		branch = t.thenSpec
	}
	if branch == nil {
		return
	}

	handler, err := t.ctx.Registry.Build(branch, t.ctx.Child())
	if err != nil {
		t.logger.Error("toggle branch construction failed",
			"key", t.key, "on", on, "error", err)
		return
	}
	handler.Execute(ev)
}

// counterHandler accumulates relative-encoder deltas into a named counter
type counterHandler struct {
	key      string
	counters interface {
		Add(key string, delta int64) int64
	}
}

func newCounter(spec *mapping.HandlerSpec, ctx Context) (Handler, error) {
	key, ok := stringParam(spec, "key")
	if !ok || key == "" {
		return nil, fmt.Errorf("counter without 'key' param")
	}
	if ctx.Counters == nil {
		return nil, fmt.Errorf("counter handler requires counter state")
	}
	return &counterHandler{key: key, counters: ctx.Counters}, nil
}

func (c *counterHandler) Execute(ev event.ControlEvent) {
	if ev.Kind != event.RelativeDelta {
		return
	}
	_, delta := event.ClassifyRelative(ev.Value)
	if delta == 0 {
		return
	}
	c.counters.Add(c.key, int64(delta))
}
