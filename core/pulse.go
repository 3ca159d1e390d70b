// Pulse/cycle engine
// Each slot toggles a level a fixed number of times, then rests. Blink
// patterns and strip flicker effects are built on it.
package core

import "math"

// MaxPulseSlots is the capacity of a PulseEngine
const MaxPulseSlots = 8

// PulseSlot is a handle into a PulseEngine
type PulseSlot uint8

// PulsePattern describes "toggle Count times, then wait".
// A zero Wait never enters the waiting state: the burst counter wraps and
// toggling continues at a steady Pulse cadence.
type PulsePattern struct {
	Count uint32 // Number of on/off pulses per burst
	Pulse Micros // Length of one half-cycle
	Wait  Micros // Rest between bursts, 0 = never rest
}

// PatternMillis builds a pattern from millisecond durations
func PatternMillis(count, pulseMs, waitMs uint32) PulsePattern {
	return PulsePattern{Count: count, Pulse: Millis(pulseMs), Wait: Millis(waitMs)}
}

// Validate checks the pattern for values that would break the engine
func (p PulsePattern) Validate() error {
	if p.Count == 0 || p.Count > math.MaxUint32/2 {
		return &ConfigError{Component: "pulse", Field: "count", Err: ErrInvalidCount}
	}
	if err := checkInterval("pulse", "pulse", p.Pulse, false); err != nil {
		return err
	}
	return checkInterval("pulse", "wait", p.Wait, true)
}

// PulseState is the state of one slot
type PulseState struct {
	Enabled     bool
	Toggling    bool
	ToggleCount uint32
	Level       bool
	HalfCycles  uint32
	Pulse       Micros
	Wait        Micros

	lastToggle Micros
	lastWait   Micros
}

// LevelFunc is called when a slot changes level. It runs on the polling
// loop and must return quickly.
type LevelFunc func(slot PulseSlot, level bool)

// PulseEngine owns a fixed arena of pulse slots
type PulseEngine struct {
	slots    [MaxPulseSlots]PulseState
	acquired [MaxPulseSlots]bool
}

// NewPulseEngine returns an engine with every slot free
func NewPulseEngine() *PulseEngine {
	return &PulseEngine{}
}

// Acquire reserves the next free slot. The slot stays disabled until it is
// configured.
func (e *PulseEngine) Acquire() (PulseSlot, error) {
	for i := range e.acquired {
		if !e.acquired[i] {
			e.acquired[i] = true
			e.slots[i] = PulseState{}
			return PulseSlot(i), nil
		}
	}
	return 0, ErrPoolExhausted
}

// Release frees a slot for reuse
func (e *PulseEngine) Release(slot PulseSlot) error {
	if err := e.check(slot); err != nil {
		return err
	}
	e.acquired[slot] = false
	e.slots[slot] = PulseState{}
	return nil
}

func (e *PulseEngine) check(slot PulseSlot) error {
	if int(slot) >= MaxPulseSlots || !e.acquired[slot] {
		return ErrInvalidSlot
	}
	return nil
}

// Configure (re)defines the pattern of a slot and resets it
func (e *PulseEngine) Configure(now Micros, slot PulseSlot, p PulsePattern) error {
	if err := e.check(slot); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	st := &e.slots[slot]
	st.HalfCycles = p.Count * 2
	st.Pulse = p.Pulse
	st.Wait = p.Wait
	return e.Reset(now, slot)
}

// Reset restarts a slot at the beginning of its toggling phase
func (e *PulseEngine) Reset(now Micros, slot PulseSlot) error {
	if err := e.check(slot); err != nil {
		return err
	}
	st := &e.slots[slot]
	st.ToggleCount = 0
	st.Toggling = true
	st.Enabled = true
	st.Level = false
	st.lastWait = now
	st.lastToggle = now
	return nil
}

// Enable resumes a disabled slot from where it stopped
func (e *PulseEngine) Enable(slot PulseSlot) error {
	if err := e.check(slot); err != nil {
		return err
	}
	e.slots[slot].Enabled = true
	return nil
}

// Disable freezes a slot in place without touching its counters
func (e *PulseEngine) Disable(slot PulseSlot) error {
	if err := e.check(slot); err != nil {
		return err
	}
	e.slots[slot].Enabled = false
	return nil
}

// State returns a copy of the slot state
func (e *PulseEngine) State(slot PulseSlot) (PulseState, error) {
	if err := e.check(slot); err != nil {
		return PulseState{}, err
	}
	return e.slots[slot], nil
}

// Tick processes every enabled slot in index order. onLevel may be nil.
func (e *PulseEngine) Tick(now Micros, onLevel LevelFunc) {
	for i := range e.slots {
		st := &e.slots[i]
		if !e.acquired[i] || !st.Enabled || st.HalfCycles == 0 {
			continue
		}

		if st.Toggling {
			if Since(now, st.lastToggle) < st.Pulse {
				continue
			}
			st.Level = !st.Level
			st.ToggleCount++
			if onLevel != nil {
				onLevel(PulseSlot(i), st.Level)
			}
			st.lastToggle = now

			if st.ToggleCount >= st.HalfCycles {
				st.ToggleCount = 0
				if st.Wait > 0 {
					st.Toggling = false
					st.lastWait = now
				}
			}
		} else if Since(now, st.lastWait) >= st.Wait {
			st.Toggling = true
			st.lastToggle = now
		}
	}
}
