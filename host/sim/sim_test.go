package sim

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickio/core"
	"tickio/protocol"
)

func run(t *testing.T, doc string) *Result {
	t.Helper()
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	r, err := NewRunner(s, nil)
	require.NoError(t, err)
	res, err := r.Run()
	require.NoError(t, err)
	require.NoError(t, res.Check(s.Expect))
	return res
}

func TestSingleClick(t *testing.T) {
	res := run(t, `
name: single
steps:
  - 100ms button click
expect:
  - click single_click
  - no click double_click
`)
	require.Len(t, res.Events, 1)
	// Reported once the double-click window after the 180ms release closes
	assert.Equal(t, uint64(core.Millis(680)), res.Events[0].Time)
}

func TestDoubleClick(t *testing.T) {
	run(t, `
steps:
  - 100ms button click
  - 300ms button click
expect:
  - click double_click
  - no click single_click
`)
}

func TestLongPressRepeats(t *testing.T) {
	res := run(t, `
steps:
  - 100ms button press 2500ms
expect:
  - click long_press
  - click long_press
  - click long_press
  - no click single_click
`)
	var held []int32
	for _, ev := range res.Events {
		if ev.Kind == protocol.EventClick {
			held = append(held, ev.B)
		}
	}
	assert.Equal(t, []int32{0, 200, 400}, held)
}

func TestEncoderCoalescesUpdates(t *testing.T) {
	res := run(t, `
steps:
  - 100ms encoder cw 3
expect:
  - position 1 forward
  - position 3 forward
`)
	assert.Equal(t, int16(3), res.Device.Encoder.Value())
	assert.Equal(t, int16(3), res.Hardware.Display.Value)
	assert.Equal(t, "value", res.Hardware.Display.Label)
}

func TestCommandsReachDevice(t *testing.T) {
	res := run(t, `
steps:
  - 50ms command set_position 10
  - 60ms command set_animation chase
  - 300ms encoder ccw
expect:
  - position 9 backward
`)
	assert.Equal(t, core.AnimChase, res.Device.Strip.Animation())
	assert.Equal(t, uint32(2), res.Device.Input().Handled())
}

func TestReportSwitches(t *testing.T) {
	run(t, `
tail: 300ms
steps:
  - 10ms command set_report on off
expect:
  - level leds 0 on
  - no step fade
`)
}

func TestDeviceOverrides(t *testing.T) {
	res := run(t, `
tail: 200ms
device:
  strip:
    animation: breathe
    pixels: 4
  fade:
    enabled: false
steps:
  - 0s wait
`)
	assert.Nil(t, res.Device.Fader)
	assert.Equal(t, core.AnimBreathe, res.Device.Strip.Animation())
	assert.Len(t, res.Hardware.Strip.Frame(), 4)
	assert.Positive(t, res.Hardware.Strip.Frames())
}

func TestParseStep(t *testing.T) {
	st, err := ParseStep(`1.5s command set_color 255 "0" 12`)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, st.At)
	id, args, err := st.Command()
	require.NoError(t, err)
	assert.Equal(t, protocol.CmdSetColor, id)
	assert.Equal(t, []int32{255, 0, 12}, args)

	st, err = ParseStep("20ms button press 1s")
	require.NoError(t, err)
	assert.Equal(t, time.Second, st.Hold())

	st, err = ParseStep("20ms button click")
	require.NoError(t, err)
	assert.Equal(t, defaultClick, st.Hold())

	st, err = ParseStep("20ms button click 150ms")
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, st.Hold())

	st, err = ParseStep("0ms encoder ccw")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Detents())

	for _, bad := range []string{
		"button down",
		"-5ms button down",
		"10ms button wiggle",
		"10ms button press",
		"10ms button press 0s",
		"10ms button click soon",
		"10ms button click 1s 2s",
		"10ms encoder cw zero",
		"10ms command reboot",
		"10ms lamp on",
	} {
		_, err := ParseStep(bad)
		assert.ErrorIs(t, err, ErrBadStep, bad)
	}
}

func TestParseScenarioRejectsUnknownField(t *testing.T) {
	_, err := ParseScenario([]byte("name: x\nsteps: []\nspeed: 2\n"))
	assert.Error(t, err)
}

func TestBadDeviceOverride(t *testing.T) {
	s, err := ParseScenario([]byte("device:\n  button:\n    pin: pa3\n"))
	require.NoError(t, err)
	_, err = NewRunner(s, nil)
	assert.Error(t, err)
}

func TestCheckReportsEveryFailure(t *testing.T) {
	res := &Result{Events: []protocol.Event{
		{Kind: protocol.EventClick, A: int32(core.SingleClick)},
	}}
	assert.NoError(t, res.Check([]string{"click single_click", "no click double_click"}))

	err := res.Check([]string{"click double_click", "no click single_click"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Contains(t, err.Error(), "unexpected")
}

func TestScenarioFiles(t *testing.T) {
	files, err := filepath.Glob("../../scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			r, err := NewRunner(s, nil)
			require.NoError(t, err)
			res, err := r.Run()
			require.NoError(t, err)
			assert.NoError(t, res.Check(s.Expect))
		})
	}
}
