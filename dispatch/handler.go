// Package dispatch turns resolved handler specs into running handlers on a
// bounded worker pool, so ingestion is never blocked by a slow handler.
//
// Handler kinds form a closed registry of factories resolved by name. A
// handler may construct nested handlers through the same registry; every
// nested construction deepens the Context, and exceeding the depth cap is a
// hard failure so a misconfigured mapping cannot recurse unboundedly.
package dispatch

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/j0KZ/K2-controller-design-sub000/errors"
	"github.com/j0KZ/K2-controller-design-sub000/event"
	"github.com/j0KZ/K2-controller-design-sub000/mapping"
	"github.com/j0KZ/K2-controller-design-sub000/state"
)

// MaxDepth is the nesting ceiling for handler construction. A spec chain
// deeper than this fails with ErrDepthExceeded instead of recursing.
const MaxDepth = 3

// Handler is the polymorphic unit of behavior executed when a control
// event resolves to an action. Implementations must return well under
// 100ms, never block indefinitely, and contain their own failures.
type Handler interface {
	Execute(ev event.ControlEvent)
}

// Context is threaded through every handler construction. Depth counts
// nested constructions; the other fields are the shared state handlers may
// read and mutate through their owning components.
type Context struct {
	Depth    int
	Registry *Registry
	Toggles  *state.Toggles
	Counters *state.Counters
	Logger   *slog.Logger
}

// Child returns the context for one nesting level deeper. The parent
// context is never mutated in place.
func (c Context) Child() Context {
	c.Depth++
	return c
}

// Factory constructs a handler from its spec. Factories that build nested
// handlers call Registry.Build with ctx.Child().
type Factory func(spec *mapping.HandlerSpec, ctx Context) (Handler, error)

// Registry is the closed set of handler kinds. Kinds are registered once
// at startup; specs are resolved against the registry at build time.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry pre-loaded with the builtin kinds
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	registerBuiltins(r)
	return r
}

// Register adds a handler kind. Registering a duplicate kind is rejected.
func (r *Registry) Register(kind string, factory Factory) error {
	if kind == "" || factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "Register", "kind and factory validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("handler kind '%s' already registered", kind),
			"Registry", "Register", "duplicate kind check")
	}
	r.factories[kind] = factory
	return nil
}

// Build constructs a handler for spec under ctx. Construction beyond
// MaxDepth fails with ErrDepthExceeded; unknown kinds fail with
// ErrUnknownHandlerKind. Both are reported, never silently dropped.
func (r *Registry) Build(spec *mapping.HandlerSpec, ctx Context) (Handler, error) {
	if spec == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "Build", "spec validation")
	}
	if ctx.Depth > MaxDepth {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: kind '%s' at depth %d", errors.ErrDepthExceeded, spec.Kind, ctx.Depth),
			"Registry", "Build", "depth check")
	}

	r.mu.RLock()
	factory, ok := r.factories[spec.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: '%s'", errors.ErrUnknownHandlerKind, spec.Kind),
			"Registry", "Build", "kind lookup")
	}

	if ctx.Registry == nil {
		ctx.Registry = r
	}
	return factory(spec, ctx)
}

// Kinds returns the registered kind names
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	return kinds
}
