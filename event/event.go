// Package event defines the control events flowing through the router and
// the notification frames published to broadcast subscribers.
package event

import "time"

// Kind discriminates the control event types produced by the surface
type Kind int

const (
	// Press indicates a discrete control was pressed (note on)
	Press Kind = iota
	// Release indicates a discrete control was released (note off)
	Release
	// AbsoluteChange indicates a continuous control reported an absolute position
	AbsoluteChange
	// RelativeDelta indicates a continuous control reported a signed increment
	RelativeDelta
)

// String returns the string representation of the event kind
func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	case AbsoluteChange:
		return "absolute"
	case RelativeDelta:
		return "relative"
	default:
		return "unknown"
	}
}

// MIDI value range for continuous controls
const (
	ValueMin = 0
	ValueMax = 127
)

// ControlEvent is one normalized message from the control surface.
// Events are immutable: produced once per physical message and never
// mutated downstream.
type ControlEvent struct {
	Kind      Kind
	Channel   int
	Control   int
	Value     int // 0..127
	Timestamp time.Time
}

// IsContinuous reports whether the event came from a continuous control
func (e ControlEvent) IsContinuous() bool {
	return e.Kind == AbsoluteChange || e.Kind == RelativeDelta
}

// IsExtreme reports whether the value sits at either end of the control range.
// Extreme values bypass the throttle so "all the way up/down" is never lost.
func (e ControlEvent) IsExtreme() bool {
	return e.Value == ValueMin || e.Value == ValueMax
}

// Direction classifies a relative-encoder value as a signed step count.
// Values 1..63 are positive steps, 65..127 are negative steps in a
// two's-complement-like scheme (value - 128), and 0/64 are neither.
type Direction int

const (
	// DirectionNone means the value carries no movement (0 or 64)
	DirectionNone Direction = 0
	// DirectionUp means a positive increment
	DirectionUp Direction = 1
	// DirectionDown means a negative increment
	DirectionDown Direction = -1
)

// ClassifyRelative returns the movement direction and the signed delta for
// a relative-encoder value. Values 0 and 64 classify as DirectionNone with a
// zero delta and should be ignored by the caller.
func ClassifyRelative(value int) (Direction, int) {
	switch {
	case value >= 1 && value <= 63:
		return DirectionUp, value
	case value >= 65 && value <= 127:
		return DirectionDown, value - 128
	default:
		return DirectionNone, 0
	}
}
