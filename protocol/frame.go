package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrFrameTooLong = errors.New("frame exceeds maximum length")
	ErrBadChecksum  = errors.New("frame checksum mismatch")
	ErrBadFrame     = errors.New("malformed frame")
)

// Event is one device report
type Event struct {
	Kind   EventKind
	Source uint8  // Reporting component (button, encoder, pulse bank, ...)
	Time   uint64 // Device elapsed time in microseconds
	A      int32
	B      int32
}

func (e Event) String() string {
	return fmt.Sprintf("%s src=%d t=%dus a=%d b=%d", e.Kind, e.Source, e.Time, e.A, e.B)
}

// appendPayload encodes the event fields as a VLQ sequence
func appendPayload(dst []byte, ev Event) []byte {
	dst = AppendVLQ(dst, int32(ev.Kind))
	dst = AppendVLQ(dst, int32(ev.Source))
	dst = AppendVLQ(dst, int32(uint32(ev.Time)))
	dst = AppendVLQ(dst, int32(uint32(ev.Time>>32)))
	dst = AppendVLQ(dst, ev.A)
	return AppendVLQ(dst, ev.B)
}

// AppendMessage appends a complete frame carrying payload to dst
func AppendMessage(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := MessageHeader + len(payload) + MessageTrailer
	if n > MessageMax {
		return dst, ErrFrameTooLong
	}

	start := len(dst)
	dst = append(dst, byte(n), MessageDest|(seq&MessageSeqMask))
	dst = append(dst, payload...)

	crc := Checksum(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), MessageSync), nil
}

// AppendFrame appends a complete frame carrying ev to dst
func AppendFrame(dst []byte, seq uint8, ev Event) ([]byte, error) {
	var tmp [MessageMax]byte
	return AppendMessage(dst, seq, appendPayload(tmp[:0], ev))
}

// WriteFrame encodes ev into out without allocating. out is reset first.
func WriteFrame(out *ScratchOutput, seq uint8, ev Event) error {
	var tmp [MessageMax]byte
	frame, err := AppendFrame(tmp[:0], seq, ev)
	if err != nil {
		return err
	}
	out.Reset()
	out.Output(frame)
	return nil
}

// ParseMessage validates one complete frame and returns its payload. The
// payload aliases frame.
func ParseMessage(frame []byte) (seq uint8, payload []byte, err error) {
	if len(frame) < MessageMin || int(frame[0]) != len(frame) {
		return 0, nil, ErrBadFrame
	}
	if frame[len(frame)-1] != MessageSync || frame[1]&^MessageSeqMask != MessageDest {
		return 0, nil, ErrBadFrame
	}
	body := frame[:len(frame)-MessageTrailer]
	want := uint16(frame[len(frame)-3])<<8 | uint16(frame[len(frame)-2])
	if Checksum(body) != want {
		return 0, nil, ErrBadChecksum
	}
	return frame[1] & MessageSeqMask, body[MessageHeader:], nil
}

// ParseFrame decodes one complete event frame
func ParseFrame(frame []byte) (seq uint8, ev Event, err error) {
	seq, payload, err := ParseMessage(frame)
	if err != nil {
		return 0, Event{}, err
	}
	ev, err = ParseEvent(payload)
	if err != nil {
		return 0, Event{}, err
	}
	return seq, ev, nil
}

// ParseEvent decodes an event payload
func ParseEvent(payload []byte) (Event, error) {
	var fields [6]int32
	for i := range fields {
		v, err := DecodeVLQ(&payload)
		if err != nil {
			return Event{}, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i] = v
	}
	if len(payload) != 0 {
		return Event{}, ErrBadFrame
	}

	return Event{
		Kind:   EventKind(fields[0]),
		Source: uint8(fields[1]),
		Time:   uint64(uint32(fields[2])) | uint64(uint32(fields[3]))<<32,
		A:      fields[4],
		B:      fields[5],
	}, nil
}
