// Package config describes the device wiring and timing settings. The
// defaults are compiled into the firmware; host tools can load overrides
// from YAML.
package config

import (
	"errors"
	"image/color"
	"strconv"
	"strings"

	"tickio/core"
)

// Source ids reported with each event
const (
	SourceButton  uint8 = 1
	SourceEncoder uint8 = 2
	SourceLEDs    uint8 = 3
	SourceFade    uint8 = 4
	SourceStrip   uint8 = 5
)

// SourceName returns the config section that reports as source
func SourceName(source uint8) string {
	switch source {
	case SourceButton:
		return "button"
	case SourceEncoder:
		return "encoder"
	case SourceLEDs:
		return "leds"
	case SourceFade:
		return "fade"
	case SourceStrip:
		return "strip"
	default:
		return "source" + strconv.Itoa(int(source))
	}
}

// DeviceConfig is the complete device description
type DeviceConfig struct {
	Button  ButtonSection  `yaml:"button"`
	Encoder EncoderSection `yaml:"encoder"`
	LEDs    []LEDSection   `yaml:"leds"`
	Fade    FadeSection    `yaml:"fade"`
	Strip   StripSection   `yaml:"strip"`
	Report  ReportSection  `yaml:"report"`
}

type ButtonSection struct {
	Pin           string `yaml:"pin"`
	ActiveLow     bool   `yaml:"active_low"`
	DebounceMs    uint32 `yaml:"debounce_ms"`
	DoubleClickMs uint32 `yaml:"double_click_ms"`
	LongPressMs   uint32 `yaml:"long_press_ms"`
	RepeatMs      uint32 `yaml:"repeat_ms"` // 0 disables auto-repeat
}

type EncoderSection struct {
	Clk        string `yaml:"clk"`
	Dt         string `yaml:"dt"`
	Label      string `yaml:"label"`
	DebounceMs uint32 `yaml:"debounce_ms"`
	UpdateMs   uint32 `yaml:"update_ms"`
	Step       int16  `yaml:"step"`
	Min        int16  `yaml:"min"`
	Max        int16  `yaml:"max"`
}

type LEDSection struct {
	Pin       string `yaml:"pin"`
	ActiveLow bool   `yaml:"active_low"`
	Count     uint32 `yaml:"count"`
	PulseMs   uint32 `yaml:"pulse_ms"`
	WaitMs    uint32 `yaml:"wait_ms"`
}

type FadeSection struct {
	Enabled    bool   `yaml:"enabled"`
	Pin        string `yaml:"pin"`
	PeriodUs   uint32 `yaml:"period_us"`
	Threshold  uint16 `yaml:"threshold"`
	DurationMs uint32 `yaml:"duration_ms"`
	RefreshMs  uint32 `yaml:"refresh_ms"`
}

type StripSection struct {
	Enabled    bool       `yaml:"enabled"`
	Pin        string     `yaml:"pin"`
	Pixels     int        `yaml:"pixels"`
	Color      RGB        `yaml:"color"`
	Animation  string     `yaml:"animation"`
	RefreshMs  uint32     `yaml:"refresh_ms"`
	DurationMs uint32     `yaml:"duration_ms"`
	Spacing    int        `yaml:"spacing"`
	Flicker    LEDSection `yaml:"flicker"` // Only count, pulse_ms and wait_ms are used
	UsePIO     bool       `yaml:"use_pio"`
}

type ReportSection struct {
	Levels  bool `yaml:"levels"`
	Steps   bool `yaml:"steps"`
	NoTrace bool `yaml:"no_trace"` // Skip the post-mortem trace ring
}

// RGB is a strip color
type RGB struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// DefaultDeviceConfig returns the wiring of the reference board: a
// Raspberry Pi Pico with the onboard LED, one button, one encoder, a
// fading LED and a short WS2812 strip.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Button: ButtonSection{
			Pin:           "gpio15",
			ActiveLow:     true,
			DebounceMs:    20,
			DoubleClickMs: 500,
			LongPressMs:   2000,
			RepeatMs:      200,
		},
		Encoder: EncoderSection{
			Clk:        "gpio2",
			Dt:         "gpio3",
			Label:      "value",
			DebounceMs: 2,
			UpdateMs:   20,
			Step:       1,
			Min:        -1000,
			Max:        1000,
		},
		LEDs: []LEDSection{
			{Pin: "gpio25", Count: 2, PulseMs: 100, WaitMs: 800},
		},
		Fade: FadeSection{
			Enabled:    true,
			Pin:        "gpio16",
			PeriodUs:   1000,
			Threshold:  255,
			DurationMs: 1000,
			RefreshMs:  20,
		},
		Strip: StripSection{
			Enabled:    true,
			Pin:        "gpio22",
			Pixels:     8,
			Color:      RGB{R: 255, G: 64, B: 0},
			Animation:  "scanner",
			RefreshMs:  60,
			DurationMs: 1500,
			Spacing:    3,
			Flicker:    LEDSection{Count: 3, PulseMs: 40, WaitMs: 600},
			UsePIO:     true,
		},
	}
}

// applyDefaults fills in list entries that YAML decoding created from
// scratch
func applyDefaults(cfg *DeviceConfig) {
	for i := range cfg.LEDs {
		led := &cfg.LEDs[i]
		if led.Count == 0 {
			led.Count = 1
		}
		if led.PulseMs == 0 {
			led.PulseMs = 500
		}
	}
}

// FieldError reports the dotted path of an invalid setting
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

var (
	ErrBadPin       = errors.New("pin must look like gpioN")
	ErrBadAnimation = errors.New("unknown animation")
	ErrTooManyLEDs  = errors.New("too many LEDs")
)

// fieldError prefixes err with section, using the field named by a
// core.ConfigError when there is one
func fieldError(section string, err error) error {
	var cfgErr *core.ConfigError
	if errors.As(err, &cfgErr) {
		return &FieldError{Path: section + "." + cfgErr.Field, Err: cfgErr.Err}
	}
	return &FieldError{Path: section, Err: err}
}

// ParsePin converts a "gpioN" name to a pin number
func ParsePin(name string) (uint32, error) {
	digits, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(name)), "gpio")
	if !ok || digits == "" {
		return 0, ErrBadPin
	}
	n, err := strconv.ParseUint(digits, 10, 8)
	if err != nil {
		return 0, ErrBadPin
	}
	return uint32(n), nil
}

// Validate checks every section and returns the first problem found
func (c DeviceConfig) Validate() error {
	if _, err := ParsePin(c.Button.Pin); err != nil {
		return &FieldError{Path: "button.pin", Err: err}
	}
	if err := c.ButtonClickConfig().Validate(); err != nil {
		return fieldError("button", err)
	}

	if _, err := ParsePin(c.Encoder.Clk); err != nil {
		return &FieldError{Path: "encoder.clk", Err: err}
	}
	if _, err := ParsePin(c.Encoder.Dt); err != nil {
		return &FieldError{Path: "encoder.dt", Err: err}
	}
	if err := c.EncoderConfig().Validate(); err != nil {
		return fieldError("encoder", err)
	}

	if len(c.LEDs) > core.MaxPulseSlots {
		return &FieldError{Path: "leds", Err: ErrTooManyLEDs}
	}
	for i, p := range c.LEDPatterns() {
		path := "leds." + strconv.Itoa(i)
		if _, err := ParsePin(c.LEDs[i].Pin); err != nil {
			return &FieldError{Path: path + ".pin", Err: err}
		}
		if err := p.Validate(); err != nil {
			return fieldError(path, err)
		}
	}

	if c.Fade.Enabled {
		if _, err := ParsePin(c.Fade.Pin); err != nil {
			return &FieldError{Path: "fade.pin", Err: err}
		}
		if err := c.FadeConfig().Validate(); err != nil {
			return fieldError("fade", err)
		}
	}

	if c.Strip.Enabled {
		if _, err := ParsePin(c.Strip.Pin); err != nil {
			return &FieldError{Path: "strip.pin", Err: err}
		}
		sc, err := c.StripConfig()
		if err != nil {
			return &FieldError{Path: "strip.animation", Err: err}
		}
		if err := sc.Validate(); err != nil {
			return fieldError("strip", err)
		}
	}
	return nil
}

// ButtonClickConfig converts the button section
func (c DeviceConfig) ButtonClickConfig() core.ClickConfig {
	return core.ClickConfig{
		Debounce:    core.Millis(c.Button.DebounceMs),
		DoubleClick: core.Millis(c.Button.DoubleClickMs),
		LongPress:   core.Millis(c.Button.LongPressMs),
		Repeat:      core.Millis(c.Button.RepeatMs),
	}
}

// EncoderConfig converts the encoder section
func (c DeviceConfig) EncoderConfig() core.QuadratureConfig {
	return core.QuadratureConfig{
		Debounce: core.Millis(c.Encoder.DebounceMs),
		Update:   core.Millis(c.Encoder.UpdateMs),
		Step:     c.Encoder.Step,
		Min:      c.Encoder.Min,
		Max:      c.Encoder.Max,
	}
}

// LEDPatterns converts every LED entry
func (c DeviceConfig) LEDPatterns() []core.PulsePattern {
	patterns := make([]core.PulsePattern, len(c.LEDs))
	for i, led := range c.LEDs {
		patterns[i] = led.Pattern()
	}
	return patterns
}

// Pattern converts one LED entry
func (l LEDSection) Pattern() core.PulsePattern {
	return core.PatternMillis(l.Count, l.PulseMs, l.WaitMs)
}

// FadeConfig converts the fade section. The pin is resolved separately.
func (c DeviceConfig) FadeConfig() core.FadeConfig {
	pin, _ := ParsePin(c.Fade.Pin)
	return core.FadeConfig{
		Pin:       core.PWMPin(pin),
		Period:    core.Microseconds(uint64(c.Fade.PeriodUs)),
		Threshold: c.Fade.Threshold,
		Duration:  core.Millis(c.Fade.DurationMs),
		Refresh:   core.Millis(c.Fade.RefreshMs),
	}
}

// StripConfig converts the strip section
func (c DeviceConfig) StripConfig() (core.StripConfig, error) {
	anim, ok := core.ParseAnimation(c.Strip.Animation)
	if !ok {
		return core.StripConfig{}, ErrBadAnimation
	}
	return core.StripConfig{
		Pixels:    c.Strip.Pixels,
		Color:     color.RGBA{R: c.Strip.Color.R, G: c.Strip.Color.G, B: c.Strip.Color.B, A: 255},
		Animation: anim,
		Refresh:   core.Millis(c.Strip.RefreshMs),
		Duration:  core.Millis(c.Strip.DurationMs),
		Spacing:   c.Strip.Spacing,
		Flicker:   c.Strip.Flicker.Pattern(),
	}, nil
}

// Pins resolves a pin name that Validate has already accepted
func Pins(name string) core.GPIOPin {
	n, _ := ParsePin(name)
	return core.GPIOPin(n)
}
