package sim

import (
	"image/color"

	"tickio/core"
)

// GPIO is an in-memory pin bank. Inputs configured with a pull-up read
// high until Drive sets them.
type GPIO struct {
	levels  map[core.GPIOPin]bool
	outputs map[core.GPIOPin]bool
	writes  int
}

func NewGPIO() *GPIO {
	return &GPIO{
		levels:  make(map[core.GPIOPin]bool),
		outputs: make(map[core.GPIOPin]bool),
	}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.outputs[pin] = true
	return nil
}

func (g *GPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	delete(g.outputs, pin)
	if _, driven := g.levels[pin]; !driven {
		g.levels[pin] = true
	}
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.levels[pin] = value
	g.writes++
	return nil
}

func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	return g.levels[pin]
}

// Drive sets the external level on an input pin
func (g *GPIO) Drive(pin core.GPIOPin, level bool) {
	g.levels[pin] = level
}

// Level returns the current level of any pin
func (g *GPIO) Level(pin core.GPIOPin) bool {
	return g.levels[pin]
}

// Writes counts SetPin calls
func (g *GPIO) Writes() int { return g.writes }

// PWM records the last duty cycle per pin
type PWM struct {
	duty    map[core.PWMPin]core.PWMValue
	periods map[core.PWMPin]core.Micros
	updates int
}

func NewPWM() *PWM {
	return &PWM{
		duty:    make(map[core.PWMPin]core.PWMValue),
		periods: make(map[core.PWMPin]core.Micros),
	}
}

func (p *PWM) ConfigurePWM(pin core.PWMPin, period core.Micros) error {
	p.periods[pin] = period
	return nil
}

func (p *PWM) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	p.duty[pin] = value
	p.updates++
	return nil
}

func (p *PWM) MaxValue() uint32 { return 65535 }

// Duty returns the last duty written to pin
func (p *PWM) Duty(pin core.PWMPin) core.PWMValue { return p.duty[pin] }

// Updates counts SetDutyCycle calls
func (p *PWM) Updates() int { return p.updates }

// Strip keeps the last frame written
type Strip struct {
	frame  []color.RGBA
	frames int
}

func (s *Strip) WriteColors(pixels []color.RGBA) error {
	s.frame = append(s.frame[:0], pixels...)
	s.frames++
	return nil
}

// Frame returns a copy of the last frame
func (s *Strip) Frame() []color.RGBA {
	return append([]color.RGBA(nil), s.frame...)
}

// Frames counts WriteColors calls
func (s *Strip) Frames() int { return s.frames }

// Display remembers the last value shown
type Display struct {
	Label   string
	Value   int16
	Updates int
}

func (d *Display) ShowValue(label string, value int16) error {
	d.Label = label
	d.Value = value
	d.Updates++
	return nil
}

// Hardware bundles one set of fake drivers
type Hardware struct {
	GPIO    *GPIO
	PWM     *PWM
	Strip   *Strip
	Display *Display
}

// NewHardware creates fresh fakes
func NewHardware() *Hardware {
	return &Hardware{
		GPIO:    NewGPIO(),
		PWM:     NewPWM(),
		Strip:   &Strip{},
		Display: &Display{},
	}
}

// Install registers the fakes as the core drivers. Drivers are process
// wide so only one simulation may run at a time.
func (h *Hardware) Install() {
	core.SetGPIODriver(h.GPIO)
	core.SetPWMDriver(h.PWM)
	core.SetStripDriver(h.Strip)
	core.SetDisplayDriver(h.Display)
}
