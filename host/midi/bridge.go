// Package midi forwards device events to a MIDI output so the dial and the
// button can drive a synth or DAW. Clicks become short notes, encoder
// positions become a controller value.
package midi

import (
	"errors"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"

	"tickio/core"
	"tickio/host/settings"
	"tickio/protocol"
)

var ErrNoPort = errors.New("no matching MIDI output port")

// Mapping selects the notes and controller used for each event
type Mapping struct {
	Channel    uint8
	ClickNote  uint8 // Single click; double click and long press use +1, +2
	Velocity   uint8
	PositionCC uint8
	Min        int16 // Position sent as CC value 0
	Max        int16 // Position sent as CC value 127
}

// MappingFrom converts the settings section
func MappingFrom(s settings.MIDISettings) Mapping {
	return Mapping{
		Channel:    s.Channel,
		ClickNote:  s.ClickNote,
		Velocity:   s.Velocity,
		PositionCC: s.PositionCC,
		Min:        s.Min,
		Max:        s.Max,
	}
}

// Note returns the note played for a click kind
func (m Mapping) Note(kind core.ClickKind) uint8 {
	return m.ClickNote + uint8(kind) - 1
}

// ControllerValue scales a position into 0-127
func (m Mapping) ControllerValue(pos int16) uint8 {
	if pos <= m.Min {
		return 0
	}
	if pos >= m.Max {
		return 127
	}
	return uint8((int32(pos) - int32(m.Min)) * 127 / (int32(m.Max) - int32(m.Min)))
}

// Messages translates one event. Level and step events have no MIDI form.
func (m Mapping) Messages(ev protocol.Event) []gomidi.Message {
	switch ev.Kind {
	case protocol.EventClick:
		kind := core.ClickKind(ev.A)
		if kind < core.SingleClick || kind > core.LongPress {
			return nil
		}
		note := m.Note(kind)
		return []gomidi.Message{
			gomidi.NoteOn(m.Channel, note, m.Velocity),
			gomidi.NoteOff(m.Channel, note),
		}
	case protocol.EventPosition:
		return []gomidi.Message{
			gomidi.ControlChange(m.Channel, m.PositionCC, m.ControllerValue(int16(ev.A))),
		}
	default:
		return nil
	}
}

// SendFunc writes one message to an output port
type SendFunc func(msg gomidi.Message) error

// Bridge sends translated events through a SendFunc
type Bridge struct {
	logger *zap.Logger
	send   SendFunc

	mu      sync.Mutex
	mapping Mapping
	lastCC  int // Last controller value sent, -1 before the first
	sent    uint64
	failed  uint64
}

// NewBridge creates a bridge writing through send
func NewBridge(logger *zap.Logger, send SendFunc, m Mapping) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		logger:  logger.Named("midi"),
		send:    send,
		mapping: m,
		lastCC:  -1,
	}
}

// SetMapping replaces the mapping, e.g. after a settings reload
func (b *Bridge) SetMapping(m Mapping) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mapping = m
	b.lastCC = -1
}

// Stats returns the number of messages sent and failed
func (b *Bridge) Stats() (sent, failed uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent, b.failed
}

// HandleEvent translates and sends ev. Repeated positions that scale to the
// same controller value are sent once.
func (b *Bridge) HandleEvent(ev protocol.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, msg := range b.mapping.Messages(ev) {
		var ch, ctrl, val uint8
		if msg.GetControlChange(&ch, &ctrl, &val) {
			if int(val) == b.lastCC {
				continue
			}
			b.lastCC = int(val)
		}

		if err := b.send(msg); err != nil {
			b.failed++
			b.logger.Warn("send failed", zap.Stringer("msg", msg), zap.Error(err))
			continue
		}
		b.sent++
		b.logger.Debug("sent", zap.Stringer("msg", msg))
	}
}

// PortNames lists the available output ports
func PortNames() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// OpenOutPort opens the first output port whose name contains name (case
// insensitive). An empty name picks the first port.
func OpenOutPort(name string) (drivers.Out, SendFunc, error) {
	want := strings.ToLower(name)
	for _, p := range gomidi.GetOutPorts() {
		if want != "" && !strings.Contains(strings.ToLower(p.String()), want) {
			continue
		}
		send, err := gomidi.SendTo(p)
		if err != nil {
			return nil, nil, err
		}
		return p, send, nil
	}
	return nil, nil, ErrNoPort
}
