package bridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0KZ/K2-controller-design-sub000/component"
	"github.com/j0KZ/K2-controller-design-sub000/event"
)

// wireFrame decodes frames as subscribers see them
type wireFrame struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func newTestBridge(t *testing.T, snapshot SnapshotFunc) (*Bridge, *httptest.Server) {
	t.Helper()
	b := New(Config{}, snapshot, nil, nil, nil)
	require.NoError(t, b.Initialize())
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { b.Stop(time.Second) })

	server := httptest.NewServer(b.Handler())
	t.Cleanup(server.Close)
	return b, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wireFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestSubscriberReceivesSnapshotFirst(t *testing.T) {
	snapshot := func() map[string]int {
		return map[string]int{"16:7": 100}
	}
	b, server := newTestBridge(t, snapshot)

	conn := dial(t, server)

	frame := readFrame(t, conn)
	assert.Equal(t, string(event.FrameSnapshot), frame.Type)

	var payload event.SnapshotPayload
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, map[string]int{"16:7": 100}, payload.Positions)

	// The first published frame arrives after the snapshot
	b.Publish(event.NewFrame(event.FrameLayerChanged, event.LayerPayload{Layer: 2}))
	frame = readFrame(t, conn)
	assert.Equal(t, string(event.FrameLayerChanged), frame.Type)
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b, server := newTestBridge(t, nil)

	first := dial(t, server)
	second := dial(t, server)
	readFrame(t, first)  // snapshot
	readFrame(t, second) // snapshot

	b.Publish(event.NewFrame(event.FrameConnectionChanged, event.ConnectionPayload{State: "connected"}))

	assert.Equal(t, string(event.FrameConnectionChanged), readFrame(t, first).Type)
	assert.Equal(t, string(event.FrameConnectionChanged), readFrame(t, second).Type)
}

func TestDeadSubscriberDoesNotAffectOthers(t *testing.T) {
	b, server := newTestBridge(t, nil)

	dead := dial(t, server)
	alive := dial(t, server)
	readFrame(t, dead)
	readFrame(t, alive)

	dead.Close()

	// Give the read pump a moment to notice the disconnect, then publish
	require.Eventually(t, func() bool {
		b.subMu.Lock()
		defer b.subMu.Unlock()
		return len(b.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	b.Publish(event.NewFrame(event.FrameLayerChanged, event.LayerPayload{Layer: 3}))
	assert.Equal(t, string(event.FrameLayerChanged), readFrame(t, alive).Type)
}

func TestPublishBeforeStartIsNoOp(t *testing.T) {
	b := New(Config{}, nil, nil, nil, nil)
	assert.Equal(t, component.StateCreated, b.State())

	// Must not panic or block
	b.Publish(event.NewFrame(event.FrameLayerChanged, event.LayerPayload{Layer: 2}))
}

func TestPublishAfterStopIsNoOp(t *testing.T) {
	b := New(Config{}, nil, nil, nil, nil)
	require.NoError(t, b.Initialize())
	assert.Equal(t, component.StateInitialized, b.State())
	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, component.StateStarted, b.State())
	require.NoError(t, b.Stop(time.Second))
	assert.Equal(t, component.StateStopped, b.State())

	b.Publish(event.NewFrame(event.FrameLayerChanged, event.LayerPayload{Layer: 2}))
}

func TestStopDisconnectsSubscribers(t *testing.T) {
	b := New(Config{}, nil, nil, nil, nil)
	require.NoError(t, b.Initialize())
	require.NoError(t, b.Start(context.Background()))
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	conn := dial(t, server)
	readFrame(t, conn)

	require.NoError(t, b.Stop(time.Second))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection closed by the bridge")
}
