// GPIO LED blink patterns
// Each LED is bound to a pulse slot; the slot level drives the pin.
package core

// LED is one blinking output
type LED struct {
	Pin       GPIOPin
	ActiveLow bool // Pin is driven low to light the LED

	slot PulseSlot
	on   bool
}

// Blinker drives a bank of GPIO LEDs from a PulseEngine
type Blinker struct {
	Source uint8 // Source id reported with each level change

	engine *PulseEngine
	leds   [MaxPulseSlots]LED
	count  int
	bySlot [MaxPulseSlots]int8 // Slot to LED index, -1 if unbound

	sink    EventSink
	onLevel LevelFunc
	now     Micros
	err     error
}

// NewBlinker creates an empty LED bank. A nil sink discards events.
func NewBlinker(source uint8, sink EventSink) *Blinker {
	if sink == nil {
		sink = DiscardSink{}
	}
	b := &Blinker{
		Source: source,
		engine: NewPulseEngine(),
		sink:   sink,
	}
	for i := range b.bySlot {
		b.bySlot[i] = -1
	}
	b.onLevel = b.apply
	return b
}

// Add configures pin as an output running pattern p and returns the LED
// index.
func (b *Blinker) Add(now Micros, pin GPIOPin, activeLow bool, p PulsePattern) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	slot, err := b.engine.Acquire()
	if err != nil {
		return 0, err
	}
	if err := b.engine.Configure(now, slot, p); err != nil {
		b.engine.Release(slot)
		return 0, err
	}

	gpio := MustGPIO()
	if err := gpio.ConfigureOutput(pin); err != nil {
		b.engine.Release(slot)
		return 0, err
	}
	// Start dark
	if err := gpio.SetPin(pin, activeLow); err != nil {
		b.engine.Release(slot)
		return 0, err
	}

	idx := b.count
	b.leds[idx] = LED{Pin: pin, ActiveLow: activeLow, slot: slot}
	b.bySlot[slot] = int8(idx)
	b.count++
	return idx, nil
}

// Len returns the number of LEDs
func (b *Blinker) Len() int { return b.count }

func (b *Blinker) led(idx int) (*LED, error) {
	if idx < 0 || idx >= b.count {
		return nil, ErrInvalidSlot
	}
	return &b.leds[idx], nil
}

// SetPattern replaces the pattern of an LED and restarts it
func (b *Blinker) SetPattern(now Micros, idx int, p PulsePattern) error {
	led, err := b.led(idx)
	if err != nil {
		return err
	}
	if err := b.engine.Configure(now, led.slot, p); err != nil {
		return err
	}
	return b.write(led, false)
}

// Pause freezes an LED at its current level
func (b *Blinker) Pause(idx int) error {
	led, err := b.led(idx)
	if err != nil {
		return err
	}
	return b.engine.Disable(led.slot)
}

// Resume continues a paused LED where it stopped
func (b *Blinker) Resume(idx int) error {
	led, err := b.led(idx)
	if err != nil {
		return err
	}
	return b.engine.Enable(led.slot)
}

// Restart begins the pattern again from the first pulse
func (b *Blinker) Restart(now Micros, idx int) error {
	led, err := b.led(idx)
	if err != nil {
		return err
	}
	if err := b.engine.Reset(now, led.slot); err != nil {
		return err
	}
	return b.write(led, false)
}

// Lit reports whether an LED is currently on
func (b *Blinker) Lit(idx int) bool {
	led, err := b.led(idx)
	if err != nil {
		return false
	}
	return led.on
}

// Err returns the last pin write error seen during Poll
func (b *Blinker) Err() error { return b.err }

// Poll advances every pattern and updates the pins
func (b *Blinker) Poll(now Micros) {
	b.now = now
	b.engine.Tick(now, b.onLevel)
}

func (b *Blinker) apply(slot PulseSlot, level bool) {
	idx := b.bySlot[slot]
	if idx < 0 {
		return
	}
	if err := b.write(&b.leds[idx], level); err != nil {
		b.err = err
	}
	b.sink.Level(b.Source, b.now, slot, level)
}

func (b *Blinker) write(led *LED, on bool) error {
	led.on = on
	return MustGPIO().SetPin(led.Pin, on != led.ActiveLow)
}
