package event

import "time"

// FrameType discriminates notification frames on the broadcast channel
type FrameType string

const (
	// FrameControlEvent reports a control event that passed rate control
	FrameControlEvent FrameType = "control_event"
	// FrameLayerChanged reports a layer switch
	FrameLayerChanged FrameType = "layer_changed"
	// FrameFolderChanged reports a folder enter/exit
	FrameFolderChanged FrameType = "folder_changed"
	// FrameConnectionChanged reports a device connection-state transition
	FrameConnectionChanged FrameType = "connection_changed"
	// FrameRateState reports a rate-control state change for a control
	FrameRateState FrameType = "rate_state"
	// FrameSnapshot carries the full set of last-known analog positions.
	// Delivered once to every subscriber on connect, before incremental frames.
	FrameSnapshot FrameType = "snapshot"
)

// Frame is one typed notification on the broadcast channel
type Frame struct {
	Type      FrameType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds
	Payload   any       `json:"payload,omitempty"`
}

// ControlEventPayload mirrors a ControlEvent in wire form
type ControlEventPayload struct {
	Kind    string `json:"kind"`
	Channel int    `json:"channel"`
	Control int    `json:"control"`
	Value   int    `json:"value"`
}

// LayerPayload reports the newly active layer
type LayerPayload struct {
	Layer int `json:"layer"`
}

// FolderPayload reports the current folder; empty name means root
type FolderPayload struct {
	Folder string `json:"folder"`
	Depth  int    `json:"depth"`
}

// ConnectionPayload reports the device connection state
type ConnectionPayload struct {
	State string `json:"state"`
}

// RateStatePayload reports throttle/debounce activity for one control
type RateStatePayload struct {
	Control   string `json:"control"`
	Throttled bool   `json:"throttled"`
	Pending   bool   `json:"pending"`
}

// SnapshotPayload carries last-known analog positions keyed by control
type SnapshotPayload struct {
	Positions map[string]int `json:"positions"`
}

// NewFrame creates a frame stamped with the current time
func NewFrame(frameType FrameType, payload any) Frame {
	return Frame{
		Type:      frameType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// ControlEventFrame wraps a ControlEvent as a broadcast frame
func ControlEventFrame(e ControlEvent) Frame {
	return NewFrame(FrameControlEvent, ControlEventPayload{
		Kind:    e.Kind.String(),
		Channel: e.Channel,
		Control: e.Control,
		Value:   e.Value,
	})
}
