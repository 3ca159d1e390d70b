//go:build rp2040

package main

import (
	"machine"
	"time"

	"tickio/config"
	"tickio/core"
	"tickio/device"
)

var (
	usb      = &usbPort{}
	loopErrs uint32
)

func main() {
	// Disable the watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitDebugUART()
	UpdateSystemTime()

	cfg := config.DefaultDeviceConfig()

	core.SetGPIODriver(NewRPGPIODriver())
	core.SetPWMDriver(NewRP2040PWMDriver())
	if cfg.Strip.Enabled {
		core.SetStripDriver(newStripDriver(cfg.Strip))
	}
	if oled, err := newOLEDDisplay(); err == nil {
		core.SetDisplayDriver(oled)
	} else {
		core.DebugPrintln("[BOOT] no display: " + err.Error())
	}

	mgr, err := device.NewManager(cfg)
	if err != nil {
		fail(err)
	}
	if err := mgr.Initialize(hardwareClock.Now(), usb, usb); err != nil {
		fail(err)
	}
	core.DebugPrintln("[BOOT] running")

	for {
		// Keep the loop alive if a component panics
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopErrs++
					core.DumpTrace()
				}
			}()
			_ = mgr.Poll(hardwareClock.Now())
		}()

		// Yield to the USB stack
		time.Sleep(10 * time.Microsecond)
	}
}

// newStripDriver prefers the PIO encoder and falls back to bit-banging
func newStripDriver(s config.StripSection) core.StripDriver {
	pin := machine.Pin(config.Pins(s.Pin))
	if s.UsePIO {
		strip, err := newPIOStrip(0, 0, pin)
		if err == nil {
			return strip
		}
		core.DebugPrintln("[BOOT] pio strip: " + err.Error())
	}
	return newBitbangStrip(pin)
}

// fail blinks the onboard LED forever
func fail(err error) {
	core.DebugPrintln("[BOOT] " + err.Error())
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
