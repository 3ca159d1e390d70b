// Event reporting
// Drivers hand classified events to an EventSink. The Reporter sink frames
// each event and writes it to the host link.
package core

import (
	"io"

	"tickio/protocol"
)

// EventSink receives driver events. Implementations run on the polling
// loop and must not block.
type EventSink interface {
	Click(source uint8, now Micros, kind ClickKind, held Micros)
	Position(source uint8, now Micros, value int16, forward bool)
	Level(source uint8, now Micros, slot PulseSlot, level bool)
	Step(source uint8, now Micros, id uint8, value int16)
}

// DiscardSink drops every event
type DiscardSink struct{}

func (DiscardSink) Click(uint8, Micros, ClickKind, Micros) {}
func (DiscardSink) Position(uint8, Micros, int16, bool) {}
func (DiscardSink) Level(uint8, Micros, PulseSlot, bool) {}
func (DiscardSink) Step(uint8, Micros, uint8, int16) {}

// Reporter encodes events as protocol frames and writes them to w
type Reporter struct {
	w   io.Writer
	out *protocol.ScratchOutput
	seq uint8

	// Level and Step events can be frequent; they are only sent when enabled
	ReportLevels bool
	ReportSteps  bool

	sent   uint32
	errors uint32
}

// NewReporter creates a reporter writing frames to w
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{
		w:   w,
		out: protocol.NewScratchOutput(),
	}
}

// Sent returns the number of frames written
func (r *Reporter) Sent() uint32 { return r.sent }

// Errors returns the number of frames that failed to encode or write
func (r *Reporter) Errors() uint32 { return r.errors }

func (r *Reporter) Click(source uint8, now Micros, kind ClickKind, held Micros) {
	r.send(protocol.Event{
		Kind:   protocol.EventClick,
		Source: source,
		Time:   uint64(now),
		A:      int32(kind),
		B:      int32(held.Milliseconds()),
	})
}

func (r *Reporter) Position(source uint8, now Micros, value int16, forward bool) {
	r.send(protocol.Event{
		Kind:   protocol.EventPosition,
		Source: source,
		Time:   uint64(now),
		A:      int32(value),
		B:      boolToInt32(forward),
	})
}

func (r *Reporter) Level(source uint8, now Micros, slot PulseSlot, level bool) {
	if !r.ReportLevels {
		return
	}
	r.send(protocol.Event{
		Kind:   protocol.EventLevel,
		Source: source,
		Time:   uint64(now),
		A:      int32(slot),
		B:      boolToInt32(level),
	})
}

func (r *Reporter) Step(source uint8, now Micros, id uint8, value int16) {
	if !r.ReportSteps {
		return
	}
	r.send(protocol.Event{
		Kind:   protocol.EventStep,
		Source: source,
		Time:   uint64(now),
		A:      int32(id),
		B:      int32(value),
	})
}

func (r *Reporter) send(ev protocol.Event) {
	RecordEvent(uint8(ev.Kind), ev.Source, Micros(ev.Time), ev.A, ev.B)

	if err := protocol.WriteFrame(r.out, r.seq, ev); err != nil {
		r.fail(err)
		return
	}
	if _, err := r.w.Write(r.out.Result()); err != nil {
		r.fail(err)
		return
	}
	r.seq = (r.seq + 1) & protocol.MessageSeqMask
	r.sent++
}

func (r *Reporter) fail(err error) {
	r.errors++
	DebugAsync("[REPORT] " + err.Error())
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// MultiSink fans events out to several sinks
type MultiSink []EventSink

func (m MultiSink) Click(source uint8, now Micros, kind ClickKind, held Micros) {
	for _, s := range m {
		s.Click(source, now, kind, held)
	}
}

func (m MultiSink) Position(source uint8, now Micros, value int16, forward bool) {
	for _, s := range m {
		s.Position(source, now, value, forward)
	}
}

func (m MultiSink) Level(source uint8, now Micros, slot PulseSlot, level bool) {
	for _, s := range m {
		s.Level(source, now, slot, level)
	}
}

func (m MultiSink) Step(source uint8, now Micros, id uint8, value int16) {
	for _, s := range m {
		s.Step(source, now, id, value)
	}
}
