package core

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMValue is a duty cycle value (0 to MaxValue)
type PWMValue uint32

// PWMDriver is the abstract PWM interface that core code uses.
type PWMDriver interface {
	// ConfigurePWM sets up a pin for PWM output with the given period
	ConfigurePWM(pin PWMPin, period Micros) error

	// SetDutyCycle sets the duty cycle, 0 (off) to MaxValue() (fully on)
	SetDutyCycle(pin PWMPin, value PWMValue) error

	// MaxValue returns the full-scale duty value
	MaxValue() uint32
}

var pwmDriver PWMDriver

// SetPWMDriver is called by target-specific code to register its driver.
func SetPWMDriver(d PWMDriver) {
	pwmDriver = d
}

// MustPWM returns the configured driver or panics if missing.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("PWM driver not configured")
	}
	return pwmDriver
}
