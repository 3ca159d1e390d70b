// Package protocol implements the framed event link between the device
// and the host monitor
package protocol

// Version is the event link protocol version
const Version = "0.1.0"

// Framing constants
const (
	MessageMax     = 64   // Largest frame in bytes
	MessageMin     = 5    // Header + trailer with an empty payload
	MessageHeader  = 2    // Length, sequence
	MessageTrailer = 3    // CRC16 (2 bytes) + sync
	MessageDest    = 0x10 // High nibble set on every sequence byte
	MessageSeqMask = 0x0F
	MessageSync    = 0x7E
)

// EventKind identifies the payload of a frame
type EventKind uint8

const (
	EventClick    EventKind = 1 // A = click kind, B = held time in ms
	EventPosition EventKind = 2 // A = position, B = 1 forward / 0 backward
	EventLevel    EventKind = 3 // A = pulse slot, B = level
	EventStep     EventKind = 4 // A = sequence id, B = value
)

func (k EventKind) String() string {
	switch k {
	case EventClick:
		return "click"
	case EventPosition:
		return "position"
	case EventLevel:
		return "level"
	case EventStep:
		return "step"
	default:
		return "unknown"
	}
}
