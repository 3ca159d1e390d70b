package core

import (
	"errors"
	"fmt"
)

var (
	ErrZeroInterval    = errors.New("interval must be greater than zero")
	ErrIntervalTooLong = errors.New("interval exceeds maximum")
	ErrInvalidRange    = errors.New("invalid range")
	ErrInvalidStep     = errors.New("step must be positive")
	ErrInvalidCount    = errors.New("invalid pulse count")
	ErrInvalidSlot     = errors.New("invalid slot")
	ErrPoolExhausted   = errors.New("no free slot")
	ErrSchedulerFull   = errors.New("scheduler task table full")
	ErrNoDriver        = errors.New("driver not configured")
)

// ConfigError reports a rejected configuration value
type ConfigError struct {
	Component string
	Field     string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
