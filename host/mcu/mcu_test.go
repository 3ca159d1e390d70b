package mcu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickio/core"
	"tickio/protocol"
)

// fakePort records writes and serves canned reads
type fakePort struct {
	bytes.Buffer
	written bytes.Buffer
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) { return p.written.Write(b) }
func (p *fakePort) Flush() error                { return nil }

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		line string
		id   protocol.CommandID
		args []int32
	}{
		{"set_animation breathe", protocol.CmdSetAnimation, []int32{int32(core.AnimBreathe)}},
		{"set_color 255 0x40 0", protocol.CmdSetColor, []int32{255, 64, 0}},
		{`set_pattern 0 3 "100" 900`, protocol.CmdSetPattern, []int32{0, 3, 100, 900}},
		{"set_report on off", protocol.CmdSetReport, []int32{1, 0}},
		{"set_position -12", protocol.CmdSetPosition, []int32{-12}},
		{"dump_trace", protocol.CmdDumpTrace, []int32{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			id, args, err := ParseCommandLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestParseCommandLineErrors(t *testing.T) {
	for _, line := range []string{
		"",
		"reboot",
		"set_color 1 2",
		"set_position twelve",
		`set_animation "breathe`,
	} {
		_, _, err := ParseCommandLine(line)
		assert.Error(t, err, line)
	}
}

func TestSendCommandFramesAndCountsSequence(t *testing.T) {
	port := &fakePort{}
	m := NewMCU(nil)
	m.Attach(port)

	require.NoError(t, m.Send("set_color 1 2 3"))
	require.NoError(t, m.SendCommand(protocol.CmdDumpTrace))
	assert.Equal(t, uint64(2), m.Sent())

	dec := protocol.NewDecoder()
	_, _ = dec.Write(port.written.Bytes())

	seq, payload, ok, err := dec.NextMessage()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(0), seq)
	assert.Equal(t, []byte{byte(protocol.CmdSetColor), 1, 2, 3}, payload)

	seq, payload, ok, err = dec.NextMessage()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(1), seq)
	assert.Equal(t, []byte{byte(protocol.CmdDumpTrace)}, payload)
}

func TestSendCommandChecksArity(t *testing.T) {
	m := NewMCU(nil)
	m.Attach(&fakePort{})
	assert.Error(t, m.SendCommand(protocol.CmdSetColor, 1))
	assert.Error(t, m.SendCommand(protocol.CommandID(99)))
}

func TestNotConnected(t *testing.T) {
	m := NewMCU(nil)
	assert.False(t, m.IsConnected())
	assert.ErrorIs(t, m.SendCommand(protocol.CmdDumpTrace), ErrNotConnected)
	_, err := m.Reader()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, m.Close())
}

func TestCloseReleasesPort(t *testing.T) {
	port := &fakePort{}
	m := NewMCU(nil)
	m.Attach(port)
	require.True(t, m.IsConnected())

	require.NoError(t, m.Close())
	assert.True(t, port.closed)
	assert.False(t, m.IsConnected())
}
