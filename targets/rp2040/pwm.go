//go:build rp2040

package main

import (
	"machine"

	"tickio/core"
)

// pwmFullScale is the duty range exposed to core code
const pwmFullScale = 65535

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040PWMDriver implements core.PWMDriver on the 8 hardware PWM slices.
// GPIO N maps to slice (N>>1)&7, channel A for even pins and B for odd.
type RP2040PWMDriver struct {
	// Configured period per slice in nanoseconds
	slices map[uint8]uint64

	// Pin to channel mapping
	channels map[core.PWMPin]uint8

	peripherals map[uint8]pwmPeripheral
}

// NewRP2040PWMDriver creates a new RP2040 PWM driver
func NewRP2040PWMDriver() *RP2040PWMDriver {
	return &RP2040PWMDriver{
		slices:      make(map[uint8]uint64),
		channels:    make(map[core.PWMPin]uint8),
		peripherals: make(map[uint8]pwmPeripheral),
	}
}

func sliceOf(pin core.PWMPin) uint8 {
	return uint8((uint32(pin) >> 1) & 0x7)
}

// MaxValue returns the full-scale duty value
func (d *RP2040PWMDriver) MaxValue() uint32 {
	return pwmFullScale
}

// ConfigurePWM sets up the slice of pin with the given period. Both
// channels of a slice share one period; the last call wins.
func (d *RP2040PWMDriver) ConfigurePWM(pin core.PWMPin, period core.Micros) error {
	sliceNum := sliceOf(pin)

	pwm, exists := d.peripherals[sliceNum]
	if !exists {
		pwm = getPWMPeripheral(sliceNum)
		d.peripherals[sliceNum] = pwm
	}

	periodNs := uint64(period) * 1000
	if existing, ok := d.slices[sliceNum]; !ok || existing != periodNs {
		if err := pwm.Configure(machine.PWMConfig{Period: periodNs}); err != nil {
			return err
		}
		d.slices[sliceNum] = periodNs
	}

	channel, err := pwm.Channel(machine.Pin(pin))
	if err != nil {
		return err
	}
	d.channels[pin] = channel
	return nil
}

// SetDutyCycle scales value (0 to MaxValue) onto the slice counter range
func (d *RP2040PWMDriver) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	channel, exists := d.channels[pin]
	if !exists {
		return core.ErrNoDriver
	}
	pwm := d.peripherals[sliceOf(pin)]

	if value > pwmFullScale {
		value = pwmFullScale
	}
	pwm.Set(channel, uint32(uint64(value)*uint64(pwm.Top())/pwmFullScale))
	return nil
}

// getPWMPeripheral returns the PWM peripheral for a slice. TinyGo
// defines PWM0-PWM7 as globals of an unexported type.
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
