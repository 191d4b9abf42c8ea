package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/j0KZ/K2-controller-design-sub000/component"
	"github.com/j0KZ/K2-controller-design-sub000/event"
	"github.com/j0KZ/K2-controller-design-sub000/mapping"
	"github.com/j0KZ/K2-controller-design-sub000/metric"
	"github.com/j0KZ/K2-controller-design-sub000/pkg/worker"
	"github.com/j0KZ/K2-controller-design-sub000/resolve"
	"github.com/j0KZ/K2-controller-design-sub000/state"
)

var _ component.Lifecycle = (*Dispatcher)(nil)

// FeedbackSink is the opaque visual-feedback capability keyed by indicator
// id (e.g. an LED on the surface).
type FeedbackSink interface {
	SetIndicator(id int, on bool)
	ClearIndicator(id int)
}

// Config holds dispatcher settings
type Config struct {
	Workers   int // Worker pool size (default 4)
	QueueSize int // Work queue bound (default 256)
}

// Dispatcher executes resolved handler specs on a bounded worker pool.
// Handler invocation is fire-and-forget: handlers contain their own
// failures by contract, and the dispatcher additionally recovers panics so
// a broken handler can never take down a worker.
type Dispatcher struct {
	registry *Registry
	pool     *worker.Pool[resolve.Result]
	feedback FeedbackSink
	toggles  *state.Toggles
	counters *state.Counters
	metrics  *metric.Metrics
	logger   *slog.Logger

	// indicator states for feedback mode "toggle"
	indicatorMu sync.Mutex
	indicators  map[int]bool
}

// NewDispatcher creates a dispatcher. feedback may be nil when the surface
// has no indicators.
func NewDispatcher(
	registry *Registry,
	feedback FeedbackSink,
	toggles *state.Toggles,
	counters *state.Counters,
	metricsRegistry *metric.Registry,
	logger *slog.Logger,
	cfg Config,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		registry:   registry,
		feedback:   feedback,
		toggles:    toggles,
		counters:   counters,
		logger:     logger,
		indicators: make(map[int]bool),
	}
	if metricsRegistry != nil {
		d.metrics = metricsRegistry.Core
	}

	var opts []worker.Option[resolve.Result]
	if metricsRegistry != nil {
		opts = append(opts, worker.WithMetrics[resolve.Result](metricsRegistry, "dispatch"))
	}
	d.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, d.process, opts...)

	return d
}

// Initialize implements component.Lifecycle
func (d *Dispatcher) Initialize() error {
	return nil
}

// Start starts the worker pool
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.pool.Start(ctx)
}

// Stop drains the worker pool
func (d *Dispatcher) Stop(timeout time.Duration) error {
	return d.pool.Stop(timeout)
}

// Submit queues a resolved result for execution. It never blocks: when the
// queue is full the result is dropped and the error reported to the caller.
func (d *Dispatcher) Submit(result resolve.Result) error {
	return d.pool.Submit(result)
}

// Stats exposes worker pool statistics
func (d *Dispatcher) Stats() worker.PoolStats {
	return d.pool.Stats()
}

// process runs on a pool worker: build the handler, execute it, then
// trigger feedback for press events.
func (d *Dispatcher) process(_ context.Context, result resolve.Result) error {
	handler, err := d.registry.Build(result.Spec, Context{
		Registry: d.registry,
		Toggles:  d.toggles,
		Counters: d.counters,
		Logger:   d.logger,
	})
	if err != nil {
		d.logger.Error("handler construction failed",
			"kind", result.Spec.Kind, "name", result.Name, "error", err)
		if d.metrics != nil {
			d.metrics.HandlerFailures.Inc()
		}
		return err
	}

	start := time.Now()
	d.execute(handler, result)
	duration := time.Since(start)

	if d.metrics != nil {
		d.metrics.HandlersDispatched.WithLabelValues(result.Spec.Kind).Inc()
		d.metrics.DispatchDuration.Observe(duration.Seconds())
	}

	// Feedback fires synchronously on the same worker, after the handler,
	// and only for presses
	if result.Feedback != nil && result.Event.Kind == event.Press {
		d.triggerFeedback(result.Feedback)
	}

	return nil
}

// execute runs the handler with panic containment
func (d *Dispatcher) execute(handler Handler, result resolve.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				"kind", result.Spec.Kind, "name", result.Name, "panic", r)
			if d.metrics != nil {
				d.metrics.HandlerFailures.Inc()
			}
		}
	}()
	handler.Execute(result.Event)
}

// triggerFeedback drives the indicator for a press. Mode "toggle" (the
// default) flips the indicator state; "flash" pulses it briefly.
func (d *Dispatcher) triggerFeedback(spec *mapping.FeedbackSpec) {
	if d.feedback == nil {
		return
	}

	switch spec.Mode {
	case "flash":
		d.feedback.SetIndicator(spec.Indicator, true)
		id := spec.Indicator
		time.AfterFunc(150*time.Millisecond, func() {
			d.feedback.ClearIndicator(id)
		})
	default:
		d.indicatorMu.Lock()
		on := !d.indicators[spec.Indicator]
		d.indicators[spec.Indicator] = on
		d.indicatorMu.Unlock()
		d.feedback.SetIndicator(spec.Indicator, on)
	}
}
