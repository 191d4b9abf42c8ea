package metric

import "github.com/prometheus/client_golang/prometheus"

const namespace = "surfrouter"

// Metrics holds the core router metrics shared across components.
// Component-specific metrics are registered separately through the Registry.
type Metrics struct {
	// Pipeline counters
	EventsReceived   *prometheus.CounterVec
	EventsResolved   prometheus.Counter
	ResolutionMisses prometheus.Counter
	EventsThrottled  prometheus.Counter
	DebounceFlushes  prometheus.Counter

	// Dispatch
	HandlersDispatched *prometheus.CounterVec
	HandlerFailures    prometheus.Counter
	DispatchDuration   prometheus.Histogram

	// Device
	DeviceConnected  prometheus.Gauge
	DeviceReconnects prometheus.Counter

	// Mapping state
	ActiveLayer prometheus.Gauge
	FolderDepth prometheus.Gauge

	// Broadcast
	Subscribers     prometheus.Gauge
	FramesPublished prometheus.Counter
	FramesDropped   prometheus.Counter
}

// NewMetrics creates the core router metrics (unregistered)
func NewMetrics() *Metrics {
	return &Metrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total control events received from the device",
		}, []string{"kind"}),

		EventsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_resolved_total",
			Help:      "Total events that resolved to a handler",
		}),

		ResolutionMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_misses_total",
			Help:      "Total events with no matching mapping entry",
		}),

		EventsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_throttled_total",
			Help:      "Total continuous-control events dropped by the throttle",
		}),

		DebounceFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debounce_flushes_total",
			Help:      "Total trailing-edge debounce flushes",
		}),

		HandlersDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handlers_dispatched_total",
			Help:      "Total handler executions by kind",
		}, []string{"kind"}),

		HandlerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_failures_total",
			Help:      "Total handler executions that panicked or errored",
		}),

		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Handler execution duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),

		DeviceConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_connected",
			Help:      "Whether the control surface is connected (1) or not (0)",
		}),

		DeviceReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_reconnects_total",
			Help:      "Total device reconnect attempts",
		}),

		ActiveLayer: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_layer",
			Help:      "Currently active mapping layer",
		}),

		FolderDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "folder_depth",
			Help:      "Current folder stack depth",
		}),

		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broadcast_subscribers",
			Help:      "Number of connected broadcast subscribers",
		}),

		FramesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_frames_published_total",
			Help:      "Total notification frames published to subscribers",
		}),

		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_frames_dropped_total",
			Help:      "Total notification frames dropped (bridge queue full or stopped)",
		}),
	}
}
