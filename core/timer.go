package core

import "time"

// Micros is an elapsed-time value in microseconds. It is used both for
// timestamps handed in by the caller and for configured intervals.
type Micros uint64

// MaxInterval is the longest interval any component accepts.
const MaxInterval = Micros(3600 * 1000000)

// Millis converts milliseconds to Micros. The multiplication happens in
// 64 bits so no input can overflow.
func Millis(ms uint32) Micros {
	return Micros(uint64(ms) * 1000)
}

// Microseconds wraps a raw microsecond count
func Microseconds(us uint64) Micros {
	return Micros(us)
}

// FromDuration converts a time.Duration, truncating to whole microseconds.
// Negative durations map to zero.
func FromDuration(d time.Duration) Micros {
	if d <= 0 {
		return 0
	}
	return Micros(d / time.Microsecond)
}

// Duration converts back to a time.Duration
func (m Micros) Duration() time.Duration {
	return time.Duration(m) * time.Microsecond
}

// Milliseconds returns the whole milliseconds in m
func (m Micros) Milliseconds() uint64 {
	return uint64(m) / 1000
}

// Since returns now-then, or zero if now is older than then.
func Since(now, then Micros) Micros {
	if now < then {
		return 0
	}
	return now - then
}

// Clock supplies the current elapsed time
type Clock interface {
	Now() Micros
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() Micros

func (f ClockFunc) Now() Micros { return f() }

// SystemClock reads the platform elapsed-time counter
var SystemClock Clock = ClockFunc(GetTime)

// GetTime returns the current system time in microseconds
func GetTime() Micros {
	return Micros(getSystemMicros())
}

// SetTime sets the current system time (host builds only drive it directly)
func SetTime(t Micros) {
	setSystemMicros(uint64(t))
}

// AdvanceTime moves the system time forward by d and returns the new value
func AdvanceTime(d Micros) Micros {
	SetTime(GetTime() + d)
	return GetTime()
}

// checkInterval validates a configured interval. Zero is rejected unless
// allowZero is set.
func checkInterval(component, field string, v Micros, allowZero bool) error {
	if v == 0 && !allowZero {
		return &ConfigError{Component: component, Field: field, Err: ErrZeroInterval}
	}
	if v > MaxInterval {
		return &ConfigError{Component: component, Field: field, Err: ErrIntervalTooLong}
	}
	return nil
}
