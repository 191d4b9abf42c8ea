// Package bridge marshals state-change notifications from the ingestion and
// dispatch threads onto a single broadcast loop serving WebSocket
// subscribers.
//
// Publish is safe from any goroutine and crosses the thread boundary exactly
// once, through one bounded channel consumed by the loop. When the loop is
// not running, Publish is a silent no-op: no subscriber is equivalent to
// no-op, never an error. Delivery failures are isolated per subscriber; a
// dead subscriber is removed from the registry and the rest keep receiving.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"github.com/j0KZ/K2-controller-design-sub000/component"
	"github.com/j0KZ/K2-controller-design-sub000/event"
	"github.com/j0KZ/K2-controller-design-sub000/metric"
)

var _ component.Lifecycle = (*Bridge)(nil)

// SnapshotFunc returns the current analog positions for the snapshot frame
// delivered to every subscriber on connect.
type SnapshotFunc func() map[string]int

// Config holds bridge settings
type Config struct {
	// Addr is the listen address for the WebSocket server (e.g. ":8800").
	// Empty disables the server; Publish stays a no-op-safe call.
	Addr string
	// Path is the WebSocket endpoint path (default "/ws")
	Path string
	// QueueSize bounds the publish channel (default 256)
	QueueSize int
	// SubscriberQueueSize bounds each subscriber's send queue (default 64)
	SubscriberQueueSize int
	// NATSSubjectPrefix, when set together with a NATS connection, mirrors
	// every frame to "<prefix>.<frame type>"
	NATSSubjectPrefix string
}

// Bridge is the broadcast bridge
type Bridge struct {
	cfg      Config
	upgrader websocket.Upgrader
	server   *http.Server
	snapshot SnapshotFunc
	logger   *slog.Logger
	metrics  *metric.Metrics
	nc       *nats.Conn

	frames chan event.Frame

	subMu       sync.Mutex
	subscribers map[string]*subscriber

	state    atomic.Int32 // component.State
	loopDone chan struct{}
	cancel   context.CancelFunc
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan event.Frame
}

// New creates a bridge. snapshot may be nil; nc may be nil to disable the
// NATS mirror.
func New(cfg Config, snapshot SnapshotFunc, nc *nats.Conn, metricsRegistry *metric.Registry, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SubscriberQueueSize <= 0 {
		cfg.SubscriberQueueSize = 64
	}

	b := &Bridge{
		cfg:      cfg,
		snapshot: snapshot,
		logger:   logger,
		nc:       nc,
		frames:   make(chan event.Frame, cfg.QueueSize),
		subscribers: make(map[string]*subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}
	if metricsRegistry != nil {
		b.metrics = metricsRegistry.Core
	}
	return b
}

// Publish enqueues a frame for broadcast. Safe from any goroutine; a silent
// no-op while the loop is not running, and non-blocking when it is: a full
// queue drops the frame rather than stalling the pipeline.
func (b *Bridge) Publish(frame event.Frame) {
	if b.State() != component.StateStarted {
		return
	}
	select {
	case b.frames <- frame:
	default:
		if b.metrics != nil {
			b.metrics.FramesDropped.Inc()
		}
	}
}

// Handler returns the WebSocket endpoint handler; exposed for tests and
// embedders that mount the bridge on their own server.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(b.handleSubscriber)
}

// State reports the current lifecycle state
func (b *Bridge) State() component.State {
	return component.State(b.state.Load())
}

// Initialize implements component.Lifecycle
func (b *Bridge) Initialize() error {
	if b.cfg.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(b.cfg.Path, b.Handler())
		b.server = &http.Server{
			Addr:              b.cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	b.state.Store(int32(component.StateInitialized))
	return nil
}

// Start launches the broadcast loop and, when configured, the server
func (b *Bridge) Start(ctx context.Context) error {
	if component.State(b.state.Swap(int32(component.StateStarted))) == component.StateStarted {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.loopDone = make(chan struct{})
	go b.loop(loopCtx)

	if b.server != nil {
		go func() {
			if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				b.logger.Error("broadcast server failed", "addr", b.cfg.Addr, "error", err)
			}
		}()
	}
	return nil
}

// Stop shuts the loop and disconnects all subscribers
func (b *Bridge) Stop(timeout time.Duration) error {
	if component.State(b.state.Swap(int32(component.StateStopped))) != component.StateStarted {
		return nil
	}

	if b.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		b.server.Shutdown(shutdownCtx)
	}

	b.cancel()
	select {
	case <-b.loopDone:
	case <-time.After(timeout):
	}

	b.subMu.Lock()
	for id, sub := range b.subscribers {
		close(sub.send)
		delete(b.subscribers, id)
	}
	b.subMu.Unlock()

	return nil
}

// loop is the single consumer of the publish channel. It fans each frame
// out to the subscriber queues and mirrors it to NATS when configured.
func (b *Bridge) loop(ctx context.Context) {
	defer close(b.loopDone)

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-b.frames:
			b.fanOut(frame)
			b.mirror(frame)
			if b.metrics != nil {
				b.metrics.FramesPublished.Inc()
			}
		}
	}
}

// fanOut queues the frame to every subscriber. A subscriber whose queue is
// full is considered dead and removed; the others are unaffected.
func (b *Bridge) fanOut(frame event.Frame) {
	b.subMu.Lock()
	var dead []string
	for id, sub := range b.subscribers {
		select {
		case sub.send <- frame:
		default:
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		sub := b.subscribers[id]
		delete(b.subscribers, id)
		close(sub.send)
		b.logger.Warn("subscriber dropped: send queue full", "subscriber", id)
	}
	count := len(b.subscribers)
	b.subMu.Unlock()

	if b.metrics != nil {
		b.metrics.Subscribers.Set(float64(count))
	}
}

// mirror publishes the frame to NATS for platform-side consumers
func (b *Bridge) mirror(frame event.Frame) {
	if b.nc == nil || b.cfg.NATSSubjectPrefix == "" {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		b.logger.Error("frame marshal failed", "type", frame.Type, "error", err)
		return
	}
	subject := fmt.Sprintf("%s.%s", b.cfg.NATSSubjectPrefix, frame.Type)
	if err := b.nc.Publish(subject, data); err != nil {
		b.logger.Error("NATS mirror publish failed", "subject", subject, "error", err)
	}
}

// handleSubscriber upgrades the connection, delivers the snapshot frame,
// then streams incremental frames until the peer goes away.
func (b *Bridge) handleSubscriber(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("subscriber upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sub := &subscriber{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan event.Frame, b.cfg.SubscriberQueueSize),
	}

	// Snapshot goes into the queue before the subscriber is registered, so
	// it is guaranteed to precede any incremental frame
	positions := map[string]int{}
	if b.snapshot != nil {
		positions = b.snapshot()
	}
	sub.send <- event.NewFrame(event.FrameSnapshot, event.SnapshotPayload{Positions: positions})

	b.subMu.Lock()
	b.subscribers[sub.id] = sub
	count := len(b.subscribers)
	b.subMu.Unlock()

	if b.metrics != nil {
		b.metrics.Subscribers.Set(float64(count))
	}
	b.logger.Info("subscriber connected", "subscriber", sub.id, "remote", r.RemoteAddr)

	go b.writePump(sub)
	go b.readPump(sub)
}

// writePump drains the subscriber queue onto the socket. Any write error
// removes this subscriber only.
func (b *Bridge) writePump(sub *subscriber) {
	for frame := range sub.send {
		if err := sub.conn.WriteJSON(frame); err != nil {
			b.logger.Info("subscriber write failed, removing",
				"subscriber", sub.id, "error", err)
			b.remove(sub.id)
			break
		}
	}
	sub.conn.Close()
}

// readPump discards inbound messages and detects disconnects
func (b *Bridge) readPump(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			b.remove(sub.id)
			return
		}
	}
}

// remove unregisters a subscriber; idempotent
func (b *Bridge) remove(id string) {
	b.subMu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(sub.send)
	}
	count := len(b.subscribers)
	b.subMu.Unlock()

	if ok {
		if b.metrics != nil {
			b.metrics.Subscribers.Set(float64(count))
		}
		b.logger.Info("subscriber disconnected", "subscriber", id)
	}
}
