//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// bitbangStrip drives a WS2812 strip from the CPU. core.Strip already
// disables interrupts around the write.
type bitbangStrip struct {
	dev ws2812.Device
}

func newBitbangStrip(pin machine.Pin) *bitbangStrip {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &bitbangStrip{dev: ws2812.NewWS2812(pin)}
}

func (s *bitbangStrip) WriteColors(pixels []color.RGBA) error {
	return s.dev.WriteColors(pixels)
}
