package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestMillisDoesNotOverflow(t *testing.T) {
	got := Millis(math.MaxUint32)
	want := Micros(uint64(math.MaxUint32) * 1000)
	if got != want {
		t.Errorf("Millis(MaxUint32) = %d, want %d", got, want)
	}
}

func TestSinceSaturates(t *testing.T) {
	if got := Since(100, 40); got != 60 {
		t.Errorf("Since(100, 40) = %d", got)
	}
	if got := Since(40, 100); got != 0 {
		t.Errorf("Since(40, 100) = %d, want 0", got)
	}
}

func TestDurationConversions(t *testing.T) {
	if got := FromDuration(1500 * time.Millisecond); got != Millis(1500) {
		t.Errorf("FromDuration = %d", got)
	}
	if got := FromDuration(-time.Second); got != 0 {
		t.Errorf("negative duration = %d, want 0", got)
	}
	if got := Millis(250).Duration(); got != 250*time.Millisecond {
		t.Errorf("Duration = %v", got)
	}
	if got := Micros(2999).Milliseconds(); got != 2 {
		t.Errorf("Milliseconds = %d", got)
	}
}

func TestSystemTime(t *testing.T) {
	SetTime(Millis(10))
	if got := AdvanceTime(Millis(5)); got != Millis(15) {
		t.Errorf("AdvanceTime = %d", got)
	}
	if got := SystemClock.Now(); got != Millis(15) {
		t.Errorf("SystemClock.Now = %d", got)
	}
}

func TestCheckInterval(t *testing.T) {
	testCases := []struct {
		v         Micros
		allowZero bool
		want      error
	}{
		{0, false, ErrZeroInterval},
		{0, true, nil},
		{Millis(1), false, nil},
		{MaxInterval, false, nil},
		{MaxInterval + 1, true, ErrIntervalTooLong},
	}

	for _, tc := range testCases {
		err := checkInterval("test", "field", tc.v, tc.allowZero)
		if !errors.Is(err, tc.want) {
			t.Errorf("checkInterval(%d, %v) = %v, want %v", tc.v, tc.allowZero, err, tc.want)
		}
	}

	var cfgErr *ConfigError
	if err := checkInterval("pulse", "pulse", 0, false); !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Component != "pulse" || cfgErr.Field != "pulse" {
		t.Errorf("unexpected error context: %+v", cfgErr)
	}
}
