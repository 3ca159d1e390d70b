package core

import (
	"image/color"
	"testing"
)

// MockGPIODriver is a test implementation of GPIODriver
type MockGPIODriver struct {
	pins    map[GPIOPin]bool
	outputs map[GPIOPin]bool
	inputs  map[GPIOPin]bool
	writes  int
}

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		pins:    make(map[GPIOPin]bool),
		outputs: make(map[GPIOPin]bool),
		inputs:  make(map[GPIOPin]bool),
	}
}

func (m *MockGPIODriver) ConfigureOutput(pin GPIOPin) error {
	m.outputs[pin] = true
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) ConfigureInputPullUp(pin GPIOPin) error {
	m.inputs[pin] = true
	m.pins[pin] = true
	return nil
}

func (m *MockGPIODriver) SetPin(pin GPIOPin, value bool) error {
	m.pins[pin] = value
	m.writes++
	return nil
}

func (m *MockGPIODriver) ReadPin(pin GPIOPin) bool {
	return m.pins[pin]
}

// MockPWMDriver records duty cycles
type MockPWMDriver struct {
	periods map[PWMPin]Micros
	duty    map[PWMPin]PWMValue
	history []PWMValue
}

func NewMockPWMDriver() *MockPWMDriver {
	return &MockPWMDriver{
		periods: make(map[PWMPin]Micros),
		duty:    make(map[PWMPin]PWMValue),
	}
}

func (m *MockPWMDriver) ConfigurePWM(pin PWMPin, period Micros) error {
	m.periods[pin] = period
	return nil
}

func (m *MockPWMDriver) SetDutyCycle(pin PWMPin, value PWMValue) error {
	m.duty[pin] = value
	m.history = append(m.history, value)
	return nil
}

func (m *MockPWMDriver) MaxValue() uint32 { return 65535 }

// MockStripDriver keeps the last frame
type MockStripDriver struct {
	frames int
	last   []color.RGBA
}

func (m *MockStripDriver) WriteColors(pixels []color.RGBA) error {
	m.frames++
	m.last = append(m.last[:0], pixels...)
	return nil
}

// MockDisplay records shown values
type MockDisplay struct {
	label string
	value int16
	shown int
}

func (m *MockDisplay) ShowValue(label string, value int16) error {
	m.label = label
	m.value = value
	m.shown++
	return nil
}

func TestGPIODriverBasic(t *testing.T) {
	mockDriver := NewMockGPIODriver()
	SetGPIODriver(mockDriver)

	pin := GPIOPin(25)
	if err := MustGPIO().ConfigureOutput(pin); err != nil {
		t.Fatalf("ConfigureOutput failed: %v", err)
	}
	if err := MustGPIO().SetPin(pin, true); err != nil {
		t.Fatalf("SetPin(true) failed: %v", err)
	}
	if !MustGPIO().ReadPin(pin) {
		t.Errorf("Expected pin to be high, got low")
	}
	if err := MustGPIO().SetPin(pin, false); err != nil {
		t.Fatalf("SetPin(false) failed: %v", err)
	}
	if MustGPIO().ReadPin(pin) {
		t.Errorf("Expected pin to be low, got high")
	}
}

func TestMustGPIOPanicsWithoutDriver(t *testing.T) {
	SetGPIODriver(nil)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustGPIO()
}
