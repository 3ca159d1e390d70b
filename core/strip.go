// Addressable LED strip animations
// Every animation is a step sequence or a pulse slot rendered into a fixed
// pixel buffer that is flushed to the StripDriver after each change.
package core

import "image/color"

// MaxPixels is the size of the strip pixel buffer
const MaxPixels = 64

// Animation selects a strip effect
type Animation uint8

const (
	AnimOff     Animation = iota
	AnimScanner           // One lit pixel bouncing end to end with a fading tail
	AnimChase             // Evenly spaced pixels walking and wrapping
	AnimBreathe           // Whole strip fading up and down
	AnimFlicker           // Whole strip blinking in bursts
)

func (a Animation) String() string {
	switch a {
	case AnimOff:
		return "off"
	case AnimScanner:
		return "scanner"
	case AnimChase:
		return "chase"
	case AnimBreathe:
		return "breathe"
	case AnimFlicker:
		return "flicker"
	default:
		return "unknown"
	}
}

// ParseAnimation maps a name back to an Animation
func ParseAnimation(name string) (Animation, bool) {
	for a := AnimOff; a <= AnimFlicker; a++ {
		if a.String() == name {
			return a, true
		}
	}
	return AnimOff, false
}

// StripConfig describes the strip and its animation
type StripConfig struct {
	Pixels    int
	Color     color.RGBA
	Animation Animation
	Refresh   Micros       // Step interval for scanner, chase and breathe
	Duration  Micros       // Breathe sweep time from dark to full
	Spacing   int          // Distance between lit chase pixels
	Flicker   PulsePattern // Burst pattern for flicker
}

// Validate checks the strip settings
func (c StripConfig) Validate() error {
	if c.Pixels <= 0 || c.Pixels > MaxPixels {
		return &ConfigError{Component: "strip", Field: "pixels", Err: ErrInvalidRange}
	}
	if c.Animation > AnimFlicker {
		return &ConfigError{Component: "strip", Field: "animation", Err: ErrInvalidRange}
	}
	if err := checkInterval("strip", "refresh", c.Refresh, false); err != nil {
		return err
	}
	if err := checkInterval("strip", "duration", c.Duration, true); err != nil {
		return err
	}
	if c.Spacing <= 0 {
		return &ConfigError{Component: "strip", Field: "spacing", Err: ErrInvalidRange}
	}
	if c.Animation == AnimFlicker {
		return c.Flicker.Validate()
	}
	return nil
}

// Strip renders animations into a pixel buffer
type Strip struct {
	Source uint8 // Source id reported with each step

	cfg    StripConfig
	pixels [MaxPixels]color.RGBA

	seq     *StepSequence
	flicker *PulseEngine
	slot    PulseSlot
	dirty   bool

	sink    EventSink
	onStep  StepFunc
	onLevel LevelFunc
	now     Micros
	err     error
}

// NewStrip validates cfg and returns a dark strip. A nil sink discards
// events.
func NewStrip(source uint8, cfg StripConfig, sink EventSink) (*Strip, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	s := &Strip{
		Source:  source,
		cfg:     cfg,
		flicker: NewPulseEngine(),
		sink:    sink,
	}
	slot, err := s.flicker.Acquire()
	if err != nil {
		return nil, err
	}
	s.slot = slot
	s.onStep = s.step
	s.onLevel = s.level

	if err := s.SetAnimation(0, cfg.Animation); err != nil {
		return nil, err
	}
	return s, nil
}

// Animation returns the running animation
func (s *Strip) Animation() Animation { return s.cfg.Animation }

// Pixels returns the current frame
func (s *Strip) Pixels() []color.RGBA { return s.pixels[:s.cfg.Pixels] }

// Err returns the last write error seen during Poll
func (s *Strip) Err() error { return s.err }

// SetColor changes the animation color from the next frame on
func (s *Strip) SetColor(c color.RGBA) {
	s.cfg.Color = c
}

// SetAnimation switches effect and starts it from the beginning
func (s *Strip) SetAnimation(now Micros, anim Animation) error {
	n := int16(s.cfg.Pixels - 1)
	var (
		stepCfg StepConfig
		useSeq  = true
	)

	switch anim {
	case AnimScanner:
		stepCfg = StepConfig{Start: 0, End: n, Increment: 1, Bounce: true, Refresh: s.cfg.Refresh}
	case AnimChase:
		stepCfg = StepConfig{Start: 0, End: n, Increment: 1, Refresh: s.cfg.Refresh}
	case AnimBreathe:
		inc, err := FadeStep(255, s.cfg.Duration, s.cfg.Refresh)
		if err != nil {
			return err
		}
		stepCfg = StepConfig{Start: 0, End: 255, Increment: inc, Bounce: true, Uniform: true, Refresh: s.cfg.Refresh}
	case AnimFlicker:
		useSeq = false
		if err := s.flicker.Configure(now, s.slot, s.cfg.Flicker); err != nil {
			return err
		}
	case AnimOff:
		useSeq = false
	default:
		return &ConfigError{Component: "strip", Field: "animation", Err: ErrInvalidRange}
	}

	if useSeq {
		seq, err := NewStepSequence(stepCfg)
		if err != nil {
			return err
		}
		seq.Reset(now)
		s.seq = seq
	} else {
		s.seq = nil
	}
	if anim != AnimFlicker {
		s.flicker.Disable(s.slot)
	}

	s.cfg.Animation = anim
	s.fill(color.RGBA{})
	return nil
}

// Poll advances the animation and flushes a changed frame
func (s *Strip) Poll(now Micros) {
	s.now = now
	switch {
	case s.seq != nil:
		s.seq.Tick(now, s.onStep)
	case s.cfg.Animation == AnimFlicker:
		s.flicker.Tick(now, s.onLevel)
	}

	if s.dirty {
		if err := s.Flush(); err != nil {
			s.err = err
		}
	}
}

// Flush writes the frame to the strip driver with interrupts disabled
func (s *Strip) Flush() error {
	state := disableInterrupts()
	err := MustStrip().WriteColors(s.pixels[:s.cfg.Pixels])
	restoreInterrupts(state)
	if err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Strip) step(seq *StepSequence) {
	v := seq.Value()
	switch s.cfg.Animation {
	case AnimScanner:
		for i := range s.pixels[:s.cfg.Pixels] {
			s.pixels[i] = scale(s.pixels[i], 128)
		}
		s.pixels[v] = s.cfg.Color
	case AnimChase:
		for i := range s.pixels[:s.cfg.Pixels] {
			if (i-int(v))%s.cfg.Spacing == 0 {
				s.pixels[i] = s.cfg.Color
			} else {
				s.pixels[i] = color.RGBA{}
			}
		}
	case AnimBreathe:
		s.fill(scale(s.cfg.Color, uint8(v)))
	}
	s.dirty = true
	s.sink.Step(s.Source, s.now, uint8(s.cfg.Animation), v)
}

func (s *Strip) level(slot PulseSlot, on bool) {
	if on {
		s.fill(s.cfg.Color)
	} else {
		s.fill(scale(s.cfg.Color, 32))
	}
	s.sink.Level(s.Source, s.now, slot, on)
}

func (s *Strip) fill(c color.RGBA) {
	for i := range s.pixels[:s.cfg.Pixels] {
		s.pixels[i] = c
	}
	s.dirty = true
}

// scale multiplies every channel by level/255
func scale(c color.RGBA, level uint8) color.RGBA {
	l := uint16(level)
	return color.RGBA{
		R: uint8(uint16(c.R) * l / 255),
		G: uint8(uint16(c.G) * l / 255),
		B: uint8(uint16(c.B) * l / 255),
		A: c.A,
	}
}
