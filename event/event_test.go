package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRelative(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		direction Direction
		delta     int
	}{
		{"minimum up step", 1, DirectionUp, 1},
		{"maximum up step", 63, DirectionUp, 63},
		{"minimum down step", 127, DirectionDown, -1},
		{"maximum down step", 65, DirectionDown, -63},
		{"zero is no movement", 0, DirectionNone, 0},
		{"64 is no movement", 64, DirectionNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direction, delta := ClassifyRelative(tt.value)
			assert.Equal(t, tt.direction, direction)
			assert.Equal(t, tt.delta, delta)
		})
	}
}

func TestControlEventIsExtreme(t *testing.T) {
	assert.True(t, ControlEvent{Value: ValueMin}.IsExtreme())
	assert.True(t, ControlEvent{Value: ValueMax}.IsExtreme())
	assert.False(t, ControlEvent{Value: 64}.IsExtreme())
	assert.False(t, ControlEvent{Value: 1}.IsExtreme())
	assert.False(t, ControlEvent{Value: 126}.IsExtreme())
}

func TestControlEventIsContinuous(t *testing.T) {
	assert.False(t, ControlEvent{Kind: Press}.IsContinuous())
	assert.False(t, ControlEvent{Kind: Release}.IsContinuous())
	assert.True(t, ControlEvent{Kind: AbsoluteChange}.IsContinuous())
	assert.True(t, ControlEvent{Kind: RelativeDelta}.IsContinuous())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "press", Press.String())
	assert.Equal(t, "release", Release.String())
	assert.Equal(t, "absolute", AbsoluteChange.String())
	assert.Equal(t, "relative", RelativeDelta.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestNewFrame(t *testing.T) {
	before := time.Now().UnixMilli()
	frame := NewFrame(FrameLayerChanged, LayerPayload{Layer: 2})
	after := time.Now().UnixMilli()

	assert.Equal(t, FrameLayerChanged, frame.Type)
	assert.GreaterOrEqual(t, frame.Timestamp, before)
	assert.LessOrEqual(t, frame.Timestamp, after)
	assert.Equal(t, LayerPayload{Layer: 2}, frame.Payload)
}

func TestControlEventFrame(t *testing.T) {
	ev := ControlEvent{Kind: Press, Channel: 16, Control: 36, Value: 127, Timestamp: time.Now()}
	frame := ControlEventFrame(ev)

	assert.Equal(t, FrameControlEvent, frame.Type)
	payload, ok := frame.Payload.(ControlEventPayload)
	assert.True(t, ok)
	assert.Equal(t, "press", payload.Kind)
	assert.Equal(t, 16, payload.Channel)
	assert.Equal(t, 36, payload.Control)
	assert.Equal(t, 127, payload.Value)
}
