// Bounded step sequencer
// Walks a counter between two bounds on a fixed refresh interval. Fades use
// it for brightness ramps and strip animations use it to walk pixel indices.
package core

import "math"

// StepConfig describes a step sequence
type StepConfig struct {
	Start     int16 // Lower bound (inclusive)
	End       int16 // Upper bound (inclusive)
	Increment int8  // Amount added or removed per step
	Bounce    bool  // Reverse at a bound instead of wrapping
	Uniform   bool  // Turn around on reaching a bound so both half-cycles match
	Reverse   bool  // Start at End walking backwards
	Refresh   Micros
}

// StepFunc receives the sequence before it advances. The callback runs on
// the polling loop and must return quickly.
type StepFunc func(s *StepSequence)

// StepSequence is the state of one bounded step walk
type StepSequence struct {
	cfg StepConfig

	current  int16
	previous int16
	forward  bool
	toggled  bool

	lastRefresh Micros
}

// NewStepSequence validates cfg and returns a sequence positioned at its
// starting bound.
func NewStepSequence(cfg StepConfig) (*StepSequence, error) {
	if err := checkInterval("sequencer", "refresh", cfg.Refresh, false); err != nil {
		return nil, err
	}
	if cfg.Start > cfg.End {
		return nil, &ConfigError{Component: "sequencer", Field: "start/end", Err: ErrInvalidRange}
	}
	if cfg.Increment <= 0 {
		return nil, &ConfigError{Component: "sequencer", Field: "increment", Err: ErrInvalidStep}
	}

	s := &StepSequence{cfg: cfg}
	s.Reset(0)
	return s, nil
}

// Reset moves the sequence back to its starting bound. The next step is
// due one refresh interval after now.
func (s *StepSequence) Reset(now Micros) {
	s.forward = !s.cfg.Reverse
	if s.forward {
		s.current = s.cfg.Start
	} else {
		s.current = s.cfg.End
	}
	s.previous = s.current
	s.toggled = false
	s.lastRefresh = now
}

// Config returns the sequence configuration
func (s *StepSequence) Config() StepConfig { return s.cfg }

// Value returns the current value
func (s *StepSequence) Value() int16 { return s.current }

// Previous returns the value emitted by the last step
func (s *StepSequence) Previous() int16 { return s.previous }

// Forward reports whether the sequence is walking towards End
func (s *StepSequence) Forward() bool { return s.forward }

// Toggled flips every time a bound is touched
func (s *StepSequence) Toggled() bool { return s.toggled }

// Tick advances the sequence if a refresh interval has elapsed since the
// last step. onStep (may be nil) sees the value before the update.
// Returns true if a step was taken.
func (s *StepSequence) Tick(now Micros, onStep StepFunc) bool {
	if Since(now, s.lastRefresh) < s.cfg.Refresh {
		return false
	}
	s.lastRefresh = now

	if onStep != nil {
		onStep(s)
	}
	s.previous = s.current
	s.advance()
	return true
}

func (s *StepSequence) advance() {
	start := int32(s.cfg.Start)
	end := int32(s.cfg.End)
	inc := int32(s.cfg.Increment)
	v := int32(s.current)

	var margin int32
	if s.cfg.Uniform {
		margin = 1
	}

	if s.cfg.Bounce {
		if s.forward {
			v += inc
			if v > end-margin {
				v = end
				s.forward = false
				s.toggled = !s.toggled
			}
		} else {
			v -= inc
			if v < start+margin {
				v = start
				s.forward = true
				s.toggled = !s.toggled
			}
		}
	} else {
		if s.forward {
			v += inc
			if v > end {
				v = start
				s.toggled = !s.toggled
			}
		} else {
			v -= inc
			if v < start {
				v = end
				s.toggled = !s.toggled
			}
		}
	}

	s.current = clampInt16(v, start, end)
}

func clampInt16(v, lo, hi int32) int16 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return int16(v)
}

// FadeStep derives the per-refresh increment needed to sweep threshold in
// roughly duration. The number of steps is clamped to at least one so a
// duration shorter than refresh cannot divide by zero, and the result is
// kept within [1, MaxInt8].
func FadeStep(threshold uint16, duration, refresh Micros) (int8, error) {
	if err := checkInterval("fade", "refresh", refresh, false); err != nil {
		return 0, err
	}
	steps := uint64(duration / refresh)
	if steps < 1 {
		steps = 1
	}
	inc := uint64(threshold) / steps
	if inc < 1 {
		inc = 1
	}
	if inc > math.MaxInt8 {
		inc = math.MaxInt8
	}
	return int8(inc), nil
}
