package core

import "tickio/protocol"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceEvent captures one reported event for post-mortem analysis
type TraceEvent struct {
	Kind   uint8  // protocol.EventKind, 0 = empty slot
	Source uint8  // Reporting component
	Time   Micros // Elapsed time at event
	A      int32  // Kind-dependent value
	B      int32  // Kind-dependent value
}

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Trace ring buffer (non-blocking, for post-mortem)
	traceRing     [TraceRingSize]TraceEvent
	traceRingHead uint8        // Next write position
	traceEnabled  bool  = true // Always capture events

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetTraceEnabled turns event capture on or off
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}

// IsTraceEnabled returns whether events are captured in the trace ring
func IsTraceEnabled() bool {
	return traceEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	if debugChan != nil {
		return
	}
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker(debugChan)
}

// StopAsyncDebug closes the debug channel and lets the worker exit once
// queued messages are written
func StopAsyncDebug() {
	ch := debugChan
	debugChan = nil
	if ch != nil {
		close(ch)
	}
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker(ch <-chan string) {
	for msg := range ch {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugEnabled && debugChan != nil {
		select {
		case debugChan <- msg:
		default:
			// Channel full, drop message
		}
	}
}

// RecordEvent captures an event in the ring buffer
// This is always non-blocking and does not allocate
func RecordEvent(kind, source uint8, now Micros, a, b int32) {
	if !traceEnabled {
		return
	}
	idx := traceRingHead
	traceRing[idx] = TraceEvent{
		Kind:   kind,
		Source: source,
		Time:   now,
		A:      a,
		B:      b,
	}
	traceRingHead = (idx + 1) % TraceRingSize
}

// TraceSnapshot copies the captured events, oldest first, into dst and
// returns the filled prefix.
func TraceSnapshot(dst []TraceEvent) []TraceEvent {
	dst = dst[:0]
	start := traceRingHead
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := traceRing[(start+i)%TraceRingSize]
		if evt.Kind == 0 {
			continue
		}
		dst = append(dst, evt)
	}
	return dst
}

// DumpTrace outputs the trace ring buffer (call on shutdown/error)
func DumpTrace() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TRACE] === Event Ring Dump ===")

	var buf [TraceRingSize]TraceEvent
	for _, evt := range TraceSnapshot(buf[:0]) {
		debugPrintln("[TRACE] " + protocol.EventKind(evt.Kind).String() +
			" src=" + itoa(int(evt.Source)) +
			" t=" + utoa(uint64(evt.Time)) +
			" a=" + itoa(int(evt.A)) +
			" b=" + itoa(int(evt.B)))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// ClearTrace clears the trace buffer
func ClearTrace() {
	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceRingHead = 0
}
