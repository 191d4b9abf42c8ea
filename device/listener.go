package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/j0KZ/K2-controller-design-sub000/errors"
	"github.com/j0KZ/K2-controller-design-sub000/event"
	"github.com/j0KZ/K2-controller-design-sub000/metric"
	"github.com/j0KZ/K2-controller-design-sub000/pkg/retry"
)

// State is the connection state of the listener
type State int32

const (
	// Disconnected means no open port
	Disconnected State = iota
	// Connecting means the listener is locating/opening the device
	Connecting
	// Connected means the poll loop is running
	Connected
	// Stopped means the listener gave up after exhausting reconnect
	// attempts; this is terminal
	Stopped
)

// String returns the string representation of the connection state
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SinkFunc receives each translated control event
type SinkFunc func(ev event.ControlEvent)

// StateFunc is notified on every connection-state transition
type StateFunc func(state State)

// Config holds listener settings
type Config struct {
	// Name is the substring matched against the device name
	Name string
	// PollInterval is the fixed delay between port polls
	PollInterval time.Duration
	// ReconnectInterval is the fixed backoff between open attempts
	ReconnectInterval time.Duration
	// MaxAttempts is the reconnect ceiling; exceeding it stops the
	// listener for good
	MaxAttempts int
}

// Defaults applied by NewListener for zero config fields
const (
	DefaultPollInterval      = 5 * time.Millisecond
	DefaultReconnectInterval = 2 * time.Second
	DefaultMaxAttempts       = 60
)

// Listener owns the device connection. It runs the state machine
// Disconnected -> Connecting -> Connected and back on I/O failure, forwards
// every translated event to the sink, and reconnects with a fixed backoff
// up to the attempt ceiling. Exceeding the ceiling is terminal: Run returns
// an error instead of retrying forever silently.
type Listener struct {
	cfg     Config
	open    OpenFunc
	sink    SinkFunc
	onState StateFunc
	logger  *slog.Logger
	metrics *metric.Metrics

	state     atomic.Int32
	reconnect chan struct{}
}

// NewListener creates a listener. open defaults to OpenRawMIDI when nil.
func NewListener(
	cfg Config,
	open OpenFunc,
	sink SinkFunc,
	onState StateFunc,
	metricsRegistry *metric.Registry,
	logger *slog.Logger,
) *Listener {
	if open == nil {
		open = OpenRawMIDI
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	l := &Listener{
		cfg:       cfg,
		open:      open,
		sink:      sink,
		onState:   onState,
		logger:    logger,
		reconnect: make(chan struct{}, 1),
	}
	if metricsRegistry != nil {
		l.metrics = metricsRegistry.Core
	}
	return l
}

// IsConnected reports whether the poll loop is running against an open port
func (l *Listener) IsConnected() bool {
	return l.State() == Connected
}

// State returns the current connection state
func (l *Listener) State() State {
	return State(l.state.Load())
}

// ForceReconnect makes the listener close the current port and reopen the
// device. A no-op while already reconnecting.
func (l *Listener) ForceReconnect() {
	select {
	case l.reconnect <- struct{}{}:
	default:
	}
}

// Run drives the connection state machine until ctx is cancelled or the
// reconnect ceiling is exhausted. Blocking; callers run it in a goroutine
// (typically under an errgroup).
func (l *Listener) Run(ctx context.Context) error {
	for {
		l.setState(Connecting)

		port, err := retry.DoWithResult(ctx,
			retry.DeviceReconnect(l.cfg.ReconnectInterval, l.cfg.MaxAttempts),
			func() (Port, error) {
				if l.metrics != nil {
					l.metrics.DeviceReconnects.Inc()
				}
				return l.open(l.cfg.Name)
			})
		if err != nil {
			if ctx.Err() != nil {
				l.setState(Disconnected)
				return nil
			}
			l.setState(Stopped)
			return errors.WrapFatal(
				fmt.Errorf("%w: %d attempts for device %q: %v",
					errors.ErrReconnectExhausted, l.cfg.MaxAttempts, l.cfg.Name, err),
				"Listener", "Run", "connect to device")
		}

		l.setState(Connected)
		l.logger.Info("control surface connected", "device", l.cfg.Name)

		err = l.poll(ctx, port)
		port.Close()

		if ctx.Err() != nil {
			l.setState(Disconnected)
			return nil
		}

		// Read failure or forced reconnect: drop straight to Disconnected
		// and go around for a fresh connect cycle
		l.setState(Disconnected)
		if err != nil {
			l.logger.Warn("control surface lost", "device", l.cfg.Name, "error", err)
		}
	}
}

// poll reads pending messages on a fixed interval and forwards each
// translated event. A read error returns immediately: nothing read in a
// failing poll is ever forwarded.
func (l *Listener) poll(ctx context.Context, port Port) error {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.reconnect:
			l.logger.Info("reconnect forced", "device", l.cfg.Name)
			return nil
		case <-ticker.C:
			messages, err := port.Read()
			if err != nil {
				return errors.WrapTransient(err, "Listener", "poll", "read device")
			}
			now := time.Now()
			for _, msg := range messages {
				ev, ok := Translate(msg, now)
				if !ok {
					continue
				}
				if l.metrics != nil {
					l.metrics.EventsReceived.WithLabelValues(ev.Kind.String()).Inc()
				}
				l.sink(ev)
			}
		}
	}
}

// setState records the transition and notifies the observer
func (l *Listener) setState(state State) {
	old := State(l.state.Swap(int32(state)))
	if old == state {
		return
	}
	if l.metrics != nil {
		if state == Connected {
			l.metrics.DeviceConnected.Set(1)
		} else {
			l.metrics.DeviceConnected.Set(0)
		}
	}
	if l.onState != nil {
		l.onState(state)
	}
}
