// Package monitor decodes the device event stream, logs every event and
// republishes it to websocket subscribers.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"tickio/config"
	"tickio/core"
	"tickio/protocol"
)

// Stats counts monitor activity
type Stats struct {
	Events  uint64
	Errors  uint64 // Frames discarded by the decoder
	SeqGaps uint64
	ByKind  map[string]uint64
}

// envelope is the websocket message format
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

type eventHeader struct {
	Source   string `json:"source"`
	SourceID uint8  `json:"source_id"`
	TimeUS   uint64 `json:"time_us"`
}

type clickData struct {
	eventHeader
	Click  string `json:"click"`
	HeldMS int32  `json:"held_ms"`
}

type positionData struct {
	eventHeader
	Value   int32 `json:"value"`
	Forward bool  `json:"forward"`
}

type levelData struct {
	eventHeader
	Slot int32 `json:"slot"`
	On   bool  `json:"on"`
}

type stepData struct {
	eventHeader
	Sequence int32 `json:"sequence"`
	Value    int32 `json:"value"`
}

// Describe converts an event into its websocket type and payload
func Describe(ev protocol.Event) (string, any) {
	h := eventHeader{Source: config.SourceName(ev.Source), SourceID: ev.Source, TimeUS: ev.Time}
	switch ev.Kind {
	case protocol.EventClick:
		return "click", clickData{h, core.ClickKind(ev.A).String(), ev.B}
	case protocol.EventPosition:
		return "position", positionData{h, ev.A, ev.B != 0}
	case protocol.EventLevel:
		return "level", levelData{h, ev.A, ev.B != 0}
	case protocol.EventStep:
		return "step", stepData{h, ev.A, ev.B}
	default:
		return "unknown", h
	}
}

// Monitor consumes raw link bytes
type Monitor struct {
	logger *zap.Logger
	hub    *Hub
	dec    *protocol.Decoder
	now    func() time.Time

	mu      sync.Mutex
	stats   Stats
	onEvent func(protocol.Event)
}

// New creates a monitor. hub may be nil.
func New(logger *zap.Logger, hub *Hub) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		logger: logger.Named("monitor"),
		hub:    hub,
		dec:    protocol.NewDecoder(),
		now:    time.Now,
		stats:  Stats{ByKind: make(map[string]uint64)},
	}
}

// OnEvent installs a callback for every decoded event
func (m *Monitor) OnEvent(fn func(protocol.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = fn
}

// Stats returns a copy of the counters
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.ByKind = make(map[string]uint64, len(m.stats.ByKind))
	for k, v := range m.stats.ByKind {
		s.ByKind[k] = v
	}
	return s
}

// Feed decodes every complete frame in p
func (m *Monitor) Feed(p []byte) {
	_, _ = m.dec.Write(p)
	for {
		ev, ok, err := m.dec.Next()
		if err != nil {
			m.mu.Lock()
			m.stats.Errors++
			m.mu.Unlock()
			m.logger.Warn("discarded frame", zap.Error(err))
			continue
		}
		if !ok {
			break
		}
		m.handle(ev)
	}

	m.mu.Lock()
	m.stats.SeqGaps = m.dec.Stats().SeqGaps
	m.mu.Unlock()
}

func (m *Monitor) handle(ev protocol.Event) {
	typ, data := Describe(ev)

	m.mu.Lock()
	m.stats.Events++
	m.stats.ByKind[typ]++
	fn := m.onEvent
	m.mu.Unlock()

	m.logger.Info(typ,
		zap.String("source", config.SourceName(ev.Source)),
		zap.Uint64("time_us", ev.Time),
		zap.Int32("a", ev.A),
		zap.Int32("b", ev.B),
	)

	if fn != nil {
		fn(ev)
	}

	if m.hub != nil {
		ts := m.now()
		msg, err := json.Marshal(envelope{Type: typ, Ts: &ts, Data: data})
		if err != nil {
			m.logger.Error("encode event", zap.Error(err))
			return
		}
		m.hub.BroadcastBytes(msg)
	}
}

// Run reads r until EOF, a read error or ctx is canceled. A blocking
// read is only interrupted by closing r.
func (m *Monitor) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			m.Feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read device: %w", err)
		}
	}
}
