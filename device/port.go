// Package device owns the connection to the control surface: locating the
// MIDI port by name, polling it for pending messages, translating them into
// normalized control events, and reconnecting with backoff when the device
// goes away.
package device

import (
	"time"

	"github.com/j0KZ/K2-controller-design-sub000/event"
)

// Message is one raw MIDI channel message from the surface
type Message struct {
	Status byte // status byte including channel nibble
	Data1  byte // note / controller number
	Data2  byte // velocity / controller value
}

// Port is an open connection to the surface. Read returns the messages
// pending since the last poll without blocking; an empty slice means
// nothing arrived.
type Port interface {
	Read() ([]Message, error)
	Close() error
}

// OpenFunc locates and opens the port whose device name contains nameMatch
type OpenFunc func(nameMatch string) (Port, error)

// MIDI status nibbles handled by the translator
const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusControlChange = 0xB0
)

// Translate converts a raw MIDI message into a control event. The second
// return is false for message types the router does not handle (pitch bend,
// program change, system messages).
//
// Channels are 1-based to match the mapping table. Continuous controllers
// surface as AbsoluteChange; the resolution engine reclassifies controls
// configured in the relative table.
func Translate(msg Message, now time.Time) (event.ControlEvent, bool) {
	channel := int(msg.Status&0x0F) + 1

	switch msg.Status & 0xF0 {
	case statusNoteOn:
		kind := event.Press
		if msg.Data2 == 0 {
			// Note-on with zero velocity is a release per MIDI convention
			kind = event.Release
		}
		return event.ControlEvent{
			Kind:      kind,
			Channel:   channel,
			Control:   int(msg.Data1),
			Value:     int(msg.Data2),
			Timestamp: now,
		}, true
	case statusNoteOff:
		return event.ControlEvent{
			Kind:      event.Release,
			Channel:   channel,
			Control:   int(msg.Data1),
			Value:     int(msg.Data2),
			Timestamp: now,
		}, true
	case statusControlChange:
		return event.ControlEvent{
			Kind:      event.AbsoluteChange,
			Channel:   channel,
			Control:   int(msg.Data1),
			Value:     int(msg.Data2),
			Timestamp: now,
		}, true
	default:
		return event.ControlEvent{}, false
	}
}
