// PWM LED fading
// A bouncing step sequence sweeps the duty cycle up and down.
package core

import "math"

// FadeConfig describes one fading PWM output
type FadeConfig struct {
	Pin       PWMPin
	Period    Micros // PWM period
	Threshold uint16 // Brightness at the top of the sweep
	Duration  Micros // Time for one sweep from dark to Threshold
	Refresh   Micros // Time between brightness updates
}

// Validate checks the fade settings
func (c FadeConfig) Validate() error {
	if err := checkInterval("fade", "period", c.Period, false); err != nil {
		return err
	}
	if err := checkInterval("fade", "duration", c.Duration, true); err != nil {
		return err
	}
	if err := checkInterval("fade", "refresh", c.Refresh, false); err != nil {
		return err
	}
	if c.Threshold == 0 || c.Threshold > math.MaxInt16 {
		return &ConfigError{Component: "fade", Field: "threshold", Err: ErrInvalidRange}
	}
	return nil
}

// Fader drives a PWM pin from a bouncing StepSequence
type Fader struct {
	Source uint8 // Source id reported with each step
	ID     uint8 // Sequence id reported with each step

	cfg     FadeConfig
	seq     *StepSequence
	max     uint32
	enabled bool

	sink   EventSink
	onStep StepFunc
	now    Micros
	err    error
}

// NewFader configures the PWM pin and returns a fader starting dark.
// A nil sink discards events.
func NewFader(source, id uint8, cfg FadeConfig, sink EventSink) (*Fader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	inc, err := FadeStep(cfg.Threshold, cfg.Duration, cfg.Refresh)
	if err != nil {
		return nil, err
	}
	seq, err := NewStepSequence(StepConfig{
		Start:     0,
		End:       int16(cfg.Threshold),
		Increment: inc,
		Bounce:    true,
		Uniform:   true,
		Refresh:   cfg.Refresh,
	})
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = DiscardSink{}
	}

	pwm := MustPWM()
	if err := pwm.ConfigurePWM(cfg.Pin, cfg.Period); err != nil {
		return nil, err
	}
	if err := pwm.SetDutyCycle(cfg.Pin, 0); err != nil {
		return nil, err
	}

	f := &Fader{
		Source:  source,
		ID:      id,
		cfg:     cfg,
		seq:     seq,
		max:     pwm.MaxValue(),
		enabled: true,
		sink:    sink,
	}
	f.onStep = f.apply
	return f, nil
}

// Step returns the per-refresh brightness increment
func (f *Fader) Step() int8 { return f.seq.Config().Increment }

// Brightness returns the brightness that will be written next
func (f *Fader) Brightness() int16 { return f.seq.Value() }

// Duty converts a brightness to a PWM duty value
func (f *Fader) Duty(brightness int16) PWMValue {
	if brightness <= 0 {
		return 0
	}
	return PWMValue(uint64(brightness) * uint64(f.max) / uint64(f.cfg.Threshold))
}

// SetEnabled pauses or resumes the sweep. Pausing holds the current duty.
func (f *Fader) SetEnabled(now Micros, enabled bool) {
	if enabled && !f.enabled {
		// Do not catch up on the steps missed while paused
		f.seq.lastRefresh = now
	}
	f.enabled = enabled
}

// Restart returns to dark and sweeps up again
func (f *Fader) Restart(now Micros) error {
	f.seq.Reset(now)
	return MustPWM().SetDutyCycle(f.cfg.Pin, 0)
}

// Err returns the last PWM write error seen during Poll
func (f *Fader) Err() error { return f.err }

// Poll advances the sweep and writes the duty cycle
func (f *Fader) Poll(now Micros) {
	if !f.enabled {
		return
	}
	f.now = now
	f.seq.Tick(now, f.onStep)
}

func (f *Fader) apply(s *StepSequence) {
	v := s.Value()
	if err := MustPWM().SetDutyCycle(f.cfg.Pin, f.Duty(v)); err != nil {
		f.err = err
	}
	f.sink.Step(f.Source, f.now, f.ID, v)
}
