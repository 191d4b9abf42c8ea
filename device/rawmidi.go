package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/j0KZ/K2-controller-design-sub000/errors"
)

// rawMIDIPort reads raw MIDI bytes from an ALSA rawmidi device node in
// non-blocking mode and reassembles channel messages across reads.
type rawMIDIPort struct {
	file    *os.File
	partial []byte
	buf     [256]byte
}

// soundDir and procDir are package variables so tests can point them at a
// temporary tree.
var (
	soundDir = "/dev/snd"
	procDir  = "/proc/asound"
)

// OpenRawMIDI locates the first ALSA rawmidi device whose card name
// contains nameMatch (case-insensitive) and opens it for reading.
// It satisfies OpenFunc.
func OpenRawMIDI(nameMatch string) (Port, error) {
	nodes, err := filepath.Glob(filepath.Join(soundDir, "midiC*D*"))
	if err != nil || len(nodes) == 0 {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: no rawmidi devices under %s", errors.ErrDeviceNotFound, soundDir),
			"device", "OpenRawMIDI", "enumerate rawmidi nodes")
	}

	match := strings.ToLower(nameMatch)
	for _, node := range nodes {
		if !cardMatches(node, match) {
			continue
		}
		file, err := os.OpenFile(node, os.O_RDONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			return nil, errors.WrapTransient(err, "device", "OpenRawMIDI", "open rawmidi node")
		}
		return &rawMIDIPort{file: file}, nil
	}

	return nil, errors.WrapTransient(
		fmt.Errorf("%w: no card matching %q", errors.ErrDeviceNotFound, nameMatch),
		"device", "OpenRawMIDI", "match card name")
}

// cardMatches checks the card's long name under /proc/asound for the match
// string. A node named midiC2D0 belongs to card2.
func cardMatches(node, match string) bool {
	base := filepath.Base(node) // midiC<card>D<dev>
	var card, dev int
	if _, err := fmt.Sscanf(base, "midiC%dD%d", &card, &dev); err != nil {
		return false
	}

	for _, name := range []string{"id", "midi0"} {
		data, err := os.ReadFile(filepath.Join(procDir, fmt.Sprintf("card%d", card), name))
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(data)), match) {
			return true
		}
	}
	return false
}

// Read drains pending bytes and returns the complete messages among them.
// Bytes of a message split across reads are kept until the remainder
// arrives. EAGAIN means nothing pending, not an error.
func (p *rawMIDIPort) Read() ([]Message, error) {
	n, err := p.file.Read(p.buf[:])
	if err != nil {
		if pathErr, ok := err.(*os.PathError); ok && pathErr.Err == unix.EAGAIN {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "device", "Read", "read rawmidi bytes")
	}

	p.partial = append(p.partial, p.buf[:n]...)
	return p.drain(), nil
}

// drain consumes complete 3-byte channel messages from the partial buffer.
// Unhandled status bytes and stray data bytes are skipped.
func (p *rawMIDIPort) drain() []Message {
	var messages []Message
	for {
		// Skip to the next status byte we understand
		start := -1
		for i, b := range p.partial {
			status := b & 0xF0
			if status == statusNoteOn || status == statusNoteOff || status == statusControlChange {
				start = i
				break
			}
		}
		if start < 0 {
			p.partial = p.partial[:0]
			return messages
		}
		p.partial = p.partial[start:]
		if len(p.partial) < 3 {
			return messages
		}
		messages = append(messages, Message{
			Status: p.partial[0],
			Data1:  p.partial[1] & 0x7F,
			Data2:  p.partial[2] & 0x7F,
		})
		p.partial = p.partial[3:]
	}
}

// Close closes the device node
func (p *rawMIDIPort) Close() error {
	return p.file.Close()
}
