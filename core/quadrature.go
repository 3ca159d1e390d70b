// Quadrature decoder
// Two-input debounced decoder for rotary dials. Noise rejection (Debounce)
// and callback rate limiting (Update) are separate gates.
package core

import "math"

// QuadratureConfig holds decoder settings
type QuadratureConfig struct {
	Debounce Micros // Minimum time between recognized transitions
	Update   Micros // Minimum time between position callbacks
	Step     int16  // Value change per clk transition
	Min      int16
	Max      int16
}

// DefaultQuadratureConfig spans the full int16 range with unit steps
func DefaultQuadratureConfig() QuadratureConfig {
	return QuadratureConfig{
		Debounce: Millis(2),
		Update:   Millis(20),
		Step:     1,
		Min:      math.MinInt16,
		Max:      math.MaxInt16,
	}
}

// Validate checks the decoder settings
func (c QuadratureConfig) Validate() error {
	if err := checkInterval("quadrature", "debounce", c.Debounce, true); err != nil {
		return err
	}
	if err := checkInterval("quadrature", "update", c.Update, true); err != nil {
		return err
	}
	if c.Step <= 0 {
		return &ConfigError{Component: "quadrature", Field: "step", Err: ErrInvalidStep}
	}
	if c.Min > c.Max {
		return &ConfigError{Component: "quadrature", Field: "min/max", Err: ErrInvalidRange}
	}
	return nil
}

// PositionFunc receives the coalesced position. forward is true for
// increments. It runs on the polling loop and must return quickly.
type PositionFunc func(value int16, forward bool)

// Quadrature is the per-encoder decoder state
type Quadrature struct {
	cfg QuadratureConfig

	lastClk      bool
	lastDt       bool
	lastDebounce Micros
	lastUpdate   Micros
	value        int16
	forward      bool

	primed  bool // first sample taken
	pending bool // value changed since the last callback
	updated bool // a callback has fired at least once
}

// NewQuadrature validates cfg and returns a decoder at zero (clamped into
// [Min, Max]).
func NewQuadrature(cfg QuadratureConfig) (*Quadrature, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	q := &Quadrature{cfg: cfg}
	q.value = clampInt16(0, int32(cfg.Min), int32(cfg.Max))
	return q, nil
}

// Value returns the current position
func (q *Quadrature) Value() int16 { return q.value }

// Direction reports the direction of the last recognized step
func (q *Quadrature) Direction() bool { return q.forward }

// SetValue moves the position without firing a callback
func (q *Quadrature) SetValue(v int16) {
	q.value = clampInt16(int32(v), int32(q.cfg.Min), int32(q.cfg.Max))
}

// Tick samples both lines. onChange may be nil.
func (q *Quadrature) Tick(now Micros, clk, dt bool, onChange PositionFunc) {
	if !q.primed {
		q.primed = true
		q.lastClk, q.lastDt = clk, dt
		q.lastDebounce = now
		return
	}

	if (clk != q.lastClk || dt != q.lastDt) && Since(now, q.lastDebounce) > q.cfg.Debounce {
		// Only clk edges move the position; a dt-only change is latched
		// so the next clk edge compares against fresh levels.
		if clk != q.lastClk {
			q.step(clk != dt)
		}
		q.lastClk, q.lastDt = clk, dt
		q.lastDebounce = now
	}

	if q.pending && (!q.updated || Since(now, q.lastUpdate) >= q.cfg.Update) {
		q.pending = false
		q.updated = true
		q.lastUpdate = now
		if onChange != nil {
			onChange(q.value, q.forward)
		}
	}
}

func (q *Quadrature) step(forward bool) {
	v := int32(q.value)
	if forward {
		v += int32(q.cfg.Step)
	} else {
		v -= int32(q.cfg.Step)
	}
	q.forward = forward
	q.value = clampInt16(v, int32(q.cfg.Min), int32(q.cfg.Max))
	q.pending = true
}
