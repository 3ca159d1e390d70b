//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"tickio/core"
)

const (
	displayWidth   = 128
	displayHeight  = 32
	displayAddress = 0x3C
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// oledDisplay shows the encoder value on an SSD1306 over I2C0 (SDA=GP4,
// SCL=GP5)
type oledDisplay struct {
	dev  ssd1306.Device
	text [24]byte
}

// newOLEDDisplay configures the bus and the panel. A missing panel shows
// up as an error from the first Display call.
func newOLEDDisplay() (*oledDisplay, error) {
	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		SDA:       machine.GPIO4,
		SCL:       machine.GPIO5,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		return nil, err
	}

	d := &oledDisplay{dev: ssd1306.NewI2C(i2c)}
	d.dev.Configure(ssd1306.Config{
		Width:    displayWidth,
		Height:   displayHeight,
		Address:  displayAddress,
		VccState: ssd1306.SWITCHCAPVCC,
	})
	d.dev.ClearBuffer()
	if err := d.dev.Display(); err != nil {
		return nil, err
	}
	return d, nil
}

// ShowValue renders "label: value" on the first text line
func (d *oledDisplay) ShowValue(label string, value int16) error {
	line := appendInt(append(append(d.text[:0], label...), ": "...), int(value))
	d.dev.ClearBuffer()
	tinyfont.WriteLine(&d.dev, &proggy.TinySZ8pt7b, 2, 14, string(line), white)
	return d.dev.Display()
}

func appendInt(dst []byte, v int) []byte {
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	var buf [8]byte
	pos := len(buf)
	for {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return append(dst, buf[pos:]...)
}

var _ core.DisplayDriver = (*oledDisplay)(nil)
