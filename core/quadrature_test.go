package core

import (
	"errors"
	"testing"
)

type lineSample struct {
	ms      uint32
	clk, dt bool
}

type positionEvent struct {
	at      Micros
	value   int16
	forward bool
}

// rotate returns line samples for n detents starting from (false, false),
// one line change every 5ms starting at startMs.
func rotate(startMs uint32, n int, cw bool) []lineSample {
	var out []lineSample
	clk, dt := false, false
	ms := startMs
	for i := 0; i < n; i++ {
		// Clockwise moves clk first, so clk != dt right after the clk edge
		if cw {
			clk = !clk
			out = append(out, lineSample{ms, clk, dt})
			ms += 5
			dt = !dt
			out = append(out, lineSample{ms, clk, dt})
		} else {
			dt = !dt
			out = append(out, lineSample{ms, clk, dt})
			ms += 5
			clk = !clk
			out = append(out, lineSample{ms, clk, dt})
		}
		ms += 5
	}
	return out
}

func feed(q *Quadrature, samples []lineSample) []positionEvent {
	var events []positionEvent
	for _, s := range samples {
		now := Millis(s.ms)
		q.Tick(now, s.clk, s.dt, func(v int16, fwd bool) {
			events = append(events, positionEvent{now, v, fwd})
		})
	}
	return events
}

func newTestQuadrature(t *testing.T) *Quadrature {
	t.Helper()
	q, err := NewQuadrature(DefaultQuadratureConfig())
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestQuadratureConfigValidate(t *testing.T) {
	cfg := DefaultQuadratureConfig()
	cfg.Step = 0
	if _, err := NewQuadrature(cfg); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("zero step: %v", err)
	}

	cfg = DefaultQuadratureConfig()
	cfg.Min, cfg.Max = 10, -10
	if _, err := NewQuadrature(cfg); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("inverted range: %v", err)
	}
}

func TestQuadratureDirection(t *testing.T) {
	// clk edge while dt is high: clk == dt afterwards, so decrement
	q := newTestQuadrature(t)
	events := feed(q, []lineSample{{0, false, true}, {5, true, true}})
	if len(events) != 1 || events[0].value != -1 || events[0].forward {
		t.Errorf("clk==dt: got %+v, want value -1 backward", events)
	}

	// clk edge while dt is low: clk != dt afterwards, so increment
	q = newTestQuadrature(t)
	events = feed(q, []lineSample{{0, false, false}, {5, true, false}})
	if len(events) != 1 || events[0].value != 1 || !events[0].forward {
		t.Errorf("clk!=dt: got %+v, want value 1 forward", events)
	}
}

func TestQuadratureFirstSampleOnlyPrimes(t *testing.T) {
	q := newTestQuadrature(t)
	events := feed(q, []lineSample{{0, true, false}, {5, true, false}})
	if len(events) != 0 || q.Value() != 0 {
		t.Errorf("priming sample counted: value=%d events=%+v", q.Value(), events)
	}
}

func TestQuadratureDtOnlyChangeIsLatched(t *testing.T) {
	q := newTestQuadrature(t)
	feed(q, []lineSample{{0, false, false}, {5, false, true}})
	if q.Value() != 0 {
		t.Fatalf("dt change moved the position to %d", q.Value())
	}
	// clk now rises to meet the latched dt: clk == dt, so decrement
	feed(q, []lineSample{{10, true, true}})
	if q.Value() != -1 {
		t.Errorf("value = %d, want -1", q.Value())
	}
}

func TestQuadratureDebounce(t *testing.T) {
	q := newTestQuadrature(t)
	feed(q, []lineSample{{0, false, false}, {1, true, false}})
	if q.Value() != 0 {
		t.Fatalf("change inside the debounce window counted")
	}
	// Exactly the debounce window is still rejected
	feed(q, []lineSample{{2, true, false}})
	if q.Value() != 0 {
		t.Fatalf("change at the debounce boundary counted")
	}
	feed(q, []lineSample{{3, true, false}})
	if q.Value() != 1 {
		t.Errorf("value = %d after the debounce window, want 1", q.Value())
	}
}

func TestQuadratureRotation(t *testing.T) {
	cfg := DefaultQuadratureConfig()
	cfg.Update = Millis(1)
	q, _ := NewQuadrature(cfg)

	feed(q, []lineSample{{0, false, false}})
	feed(q, rotate(10, 8, true))
	if q.Value() != 8 || !q.Direction() {
		t.Errorf("after 8 cw detents: value=%d forward=%v", q.Value(), q.Direction())
	}

	q2, _ := NewQuadrature(cfg)
	feed(q2, []lineSample{{0, false, false}})
	feed(q2, rotate(10, 8, false))
	if q2.Value() != -8 || q2.Direction() {
		t.Errorf("after 8 ccw detents: value=%d forward=%v", q2.Value(), q2.Direction())
	}
}

func TestQuadratureUpdateCoalescing(t *testing.T) {
	q := newTestQuadrature(t)
	feed(q, []lineSample{{0, false, false}})
	events := feed(q, rotate(5, 5, true))

	want := []positionEvent{
		{Millis(5), 1, true},
		{Millis(25), 3, true},
		{Millis(45), 5, true},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d callbacks, want %d: %+v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("callback %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestQuadratureClamp(t *testing.T) {
	cfg := DefaultQuadratureConfig()
	cfg.Min, cfg.Max, cfg.Step = -2, 2, 1
	q, _ := NewQuadrature(cfg)

	feed(q, []lineSample{{0, false, false}})
	feed(q, rotate(10, 5, true))
	if q.Value() != 2 {
		t.Errorf("value = %d, want clamp at 2", q.Value())
	}

	q.SetValue(-100)
	if q.Value() != -2 {
		t.Errorf("SetValue not clamped: %d", q.Value())
	}
}
