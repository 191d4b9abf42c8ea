// Package router wires the full pipeline: device ingestion, rate control
// for continuous controls, mapping resolution under layer/folder state,
// bounded-pool dispatch, and the broadcast bridge.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/j0KZ/K2-controller-design-sub000/bridge"
	"github.com/j0KZ/K2-controller-design-sub000/config"
	"github.com/j0KZ/K2-controller-design-sub000/device"
	"github.com/j0KZ/K2-controller-design-sub000/dispatch"
	"github.com/j0KZ/K2-controller-design-sub000/errors"
	"github.com/j0KZ/K2-controller-design-sub000/event"
	"github.com/j0KZ/K2-controller-design-sub000/mapping"
	"github.com/j0KZ/K2-controller-design-sub000/metric"
	"github.com/j0KZ/K2-controller-design-sub000/ratelimit"
	"github.com/j0KZ/K2-controller-design-sub000/resolve"
	"github.com/j0KZ/K2-controller-design-sub000/state"
	"github.com/j0KZ/K2-controller-design-sub000/store"
)

// Persisted-state key prefixes within the single scalar map
const (
	counterPrefix  = "counter/"
	togglePrefix   = "toggle/"
	positionPrefix = "position/"
)

// Router owns every component of the pipeline and runs them under one
// errgroup. State objects are constructed here once and injected; nothing
// is process-global.
type Router struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.Registry

	tables    *mapping.Holder
	layers    *state.Layers
	folders   *state.Folders
	toggles   *state.Toggles
	counters  *state.Counters
	positions *state.Positions

	engine     *resolve.Engine
	gate       *ratelimit.FaderGate
	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	listener   *device.Listener
	bridge     *bridge.Bridge

	stateStore    store.Store
	nc            *nats.Conn
	metricsServer *http.Server
}

// Option customizes router construction
type Option func(*options)

type options struct {
	open     device.OpenFunc
	feedback dispatch.FeedbackSink
	register func(*dispatch.Registry) error
}

// WithPortOpener overrides how the device port is located and opened;
// used by tests and by embedders with their own MIDI transport.
func WithPortOpener(open device.OpenFunc) Option {
	return func(o *options) { o.open = open }
}

// WithFeedback attaches the visual-feedback sink
func WithFeedback(sink dispatch.FeedbackSink) Option {
	return func(o *options) { o.feedback = sink }
}

// WithHandlers lets the embedder register application handler kinds
// (hotkeys, service calls, sounds) before the mapping table is resolved.
func WithHandlers(register func(*dispatch.Registry) error) Option {
	return func(o *options) { o.register = register }
}

// New constructs a fully wired router from configuration
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	table, err := cfg.LoadMapping()
	if err != nil {
		return nil, err
	}

	r := &Router{
		cfg:       cfg,
		logger:    logger,
		metrics:   metric.NewRegistry(),
		tables:    mapping.NewHolder(table),
		layers:    state.NewLayers(cfg.MaxLayers),
		folders:   state.NewFolders(cfg.MaxFolderDepth),
		toggles:   state.NewToggles(),
		counters:  state.NewCounters(),
		positions: state.NewPositions(),
	}

	r.engine = resolve.NewEngine(r.tables, r.layers, r.folders, logger)

	r.registry = dispatch.NewRegistry()
	r.registerStateHandlers()
	if o.register != nil {
		if err := o.register(r.registry); err != nil {
			return nil, errors.Wrap(err, "Router", "New", "register handlers")
		}
	}

	r.dispatcher = dispatch.NewDispatcher(
		r.registry, o.feedback, r.toggles, r.counters, r.metrics, logger,
		dispatch.Config{
			Workers:   cfg.Dispatch.Workers,
			QueueSize: cfg.Dispatch.QueueSize,
		})

	r.gate = ratelimit.NewFaderGate(cfg.Rate.ThrottleHz, cfg.DebounceDelay(), r.processContinuous)
	r.gate.OnFlush(func(string, int) {
		r.metrics.Core.DebounceFlushes.Inc()
	})

	r.listener = device.NewListener(
		device.Config{
			Name:              cfg.Device.Name,
			PollInterval:      cfg.PollInterval(),
			ReconnectInterval: cfg.ReconnectInterval(),
			MaxAttempts:       cfg.Device.MaxReconnectAttempts,
		},
		o.open, r.route, r.onConnectionState, r.metrics, logger)

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			return nil, errors.WrapTransient(err, "Router", "New", "connect to NATS")
		}
		r.nc = nc
	}

	r.bridge = bridge.New(
		bridge.Config{
			Addr:              cfg.Bridge.Addr,
			Path:              cfg.Bridge.Path,
			NATSSubjectPrefix: cfg.Bridge.NATSSubjectPrefix,
		},
		r.positions.Snapshot, r.nc, r.metrics, logger)

	if err := r.buildStore(); err != nil {
		return nil, err
	}

	r.wireObservers()
	return r, nil
}

// buildStore selects NATS KV persistence when configured, file otherwise
func (r *Router) buildStore() error {
	if r.cfg.NATS.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		kv, err := store.NewKVStore(ctx, r.cfg.NATS.URL, r.cfg.NATS.StateBucket, "router-state")
		if err != nil {
			return err
		}
		r.stateStore = kv
		return nil
	}
	r.stateStore = store.NewFileStore(r.cfg.StatePath)
	return nil
}

// wireObservers connects state changes to metrics and the broadcast bridge
func (r *Router) wireObservers() {
	r.metrics.Core.ActiveLayer.Set(float64(r.layers.Current()))

	r.layers.Observe(func(layer int) {
		r.metrics.Core.ActiveLayer.Set(float64(layer))
		r.bridge.Publish(event.NewFrame(event.FrameLayerChanged,
			event.LayerPayload{Layer: layer}))
	})

	r.folders.Observe(func(current string, depth int) {
		r.metrics.Core.FolderDepth.Set(float64(depth))
		r.bridge.Publish(event.NewFrame(event.FrameFolderChanged,
			event.FolderPayload{Folder: current, Depth: depth}))
	})
}

// registerStateHandlers adds the handler kinds that drive router state:
// folder navigation and direct layer selection.
func (r *Router) registerStateHandlers() {
	r.registry.Register("enter_folder", func(spec *mapping.HandlerSpec, _ dispatch.Context) (dispatch.Handler, error) {
		name, _ := spec.Params["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("enter_folder without 'name' param")
		}
		return handlerFunc(func(ev event.ControlEvent) {
			if ev.Kind != event.Press {
				return
			}
			if !r.folders.Enter(name) {
				r.logger.Warn("folder depth limit reached",
					"folder", name, "depth", r.folders.Depth())
			}
		}), nil
	})

	r.registry.Register("exit_folder", func(spec *mapping.HandlerSpec, _ dispatch.Context) (dispatch.Handler, error) {
		toRoot, _ := spec.Params["to_root"].(bool)
		return handlerFunc(func(ev event.ControlEvent) {
			if ev.Kind != event.Press {
				return
			}
			if toRoot {
				r.folders.ExitToRoot()
			} else {
				r.folders.ExitOne()
			}
		}), nil
	})

	r.registry.Register("set_layer", func(spec *mapping.HandlerSpec, _ dispatch.Context) (dispatch.Handler, error) {
		layer, ok := spec.Params["layer"].(int)
		if !ok || layer < 1 {
			return nil, fmt.Errorf("set_layer without valid 'layer' param")
		}
		return handlerFunc(func(ev event.ControlEvent) {
			if ev.Kind != event.Press {
				return
			}
			r.layers.Set(layer)
		}), nil
	})
}

// handlerFunc adapts a function to the Handler capability
type handlerFunc func(ev event.ControlEvent)

func (f handlerFunc) Execute(ev event.ControlEvent) { f(ev) }

// route is the listener sink: discrete events resolve immediately,
// continuous events pass through the fader gate first.
func (r *Router) route(ev event.ControlEvent) {
	if !ev.IsContinuous() {
		r.resolveAndDispatch(ev)
		return
	}

	key := controlKey(ev.Channel, ev.Control)
	if !r.gate.Offer(key, ev.Value) {
		r.metrics.Core.EventsThrottled.Inc()
		r.bridge.Publish(event.NewFrame(event.FrameRateState, event.RateStatePayload{
			Control:   key,
			Throttled: true,
			Pending:   r.gate.Pending(key),
		}))
	}
}

// processContinuous is the fader gate downstream: immediate passes and
// trailing debounce flushes both land here.
func (r *Router) processContinuous(key string, value int) {
	channel, control, err := parseControlKey(key)
	if err != nil {
		r.logger.Error("malformed control key", "key", key, "error", err)
		return
	}
	r.resolveAndDispatch(event.ControlEvent{
		Kind:      event.AbsoluteChange,
		Channel:   channel,
		Control:   control,
		Value:     value,
		Timestamp: time.Now(),
	})
}

// resolveAndDispatch runs the resolution engine and submits any match to
// the worker pool. A miss is logged at debug and counted, nothing more.
func (r *Router) resolveAndDispatch(ev event.ControlEvent) {
	result, outcome := r.engine.Resolve(ev)
	switch outcome {
	case resolve.Consumed:
		return
	case resolve.NoMatch:
		r.metrics.Core.ResolutionMisses.Inc()
		return
	case resolve.Matched:
	}

	r.metrics.Core.EventsResolved.Inc()

	// Absolute positions feed the snapshot delivered to new subscribers
	if result.Event.Kind == event.AbsoluteChange {
		r.positions.Set(controlKey(ev.Channel, ev.Control), ev.Value)
	}

	r.bridge.Publish(event.ControlEventFrame(result.Event))

	if err := r.dispatcher.Submit(result); err != nil {
		r.logger.Warn("dispatch queue full, event dropped",
			"name", result.Name, "kind", result.Spec.Kind, "error", err)
	}
}

// onConnectionState publishes device state transitions to subscribers
func (r *Router) onConnectionState(s device.State) {
	r.logger.Info("device state changed", "state", s.String())
	r.bridge.Publish(event.NewFrame(event.FrameConnectionChanged,
		event.ConnectionPayload{State: s.String()}))
}

// controlKey is the per-control key used by rate control and positions
func controlKey(channel, control int) string {
	return fmt.Sprintf("%d:%d", channel, control)
}

func parseControlKey(key string) (channel, control int, err error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad control key %q", key)
	}
	if _, err := fmt.Sscanf(key, "%d:%d", &channel, &control); err != nil {
		return 0, 0, fmt.Errorf("bad control key %q: %w", key, err)
	}
	return channel, control, nil
}
