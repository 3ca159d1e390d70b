package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickio/config"
	"tickio/core"
	"tickio/host/monitor"
	"tickio/protocol"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func typeLine(t *testing.T, m Model, line string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	return m
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		ev   protocol.Event
		want string
	}{
		{
			protocol.Event{Kind: protocol.EventClick, Source: config.SourceButton, Time: 680000, A: int32(core.SingleClick)},
			"     0.680s  button   single_click",
		},
		{
			protocol.Event{Kind: protocol.EventClick, Source: config.SourceButton, Time: 2000000, A: int32(core.LongPress), B: 400},
			"     2.000s  button   long_press (held +400ms)",
		},
		{
			protocol.Event{Kind: protocol.EventPosition, Source: config.SourceEncoder, Time: 2000, A: -3},
			"     0.002s  encoder  position -3 ccw",
		},
		{
			protocol.Event{Kind: protocol.EventLevel, Source: config.SourceLEDs, A: 1, B: 1},
			"     0.000s  leds     slot 1 on",
		},
		{
			protocol.Event{Kind: protocol.EventStep, Source: config.SourceFade, A: 0, B: 120},
			"     0.000s  fade     sequence 0 = 120",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.ev))
	}
}

func TestEventsUpdateDashboard(t *testing.T) {
	events := make(chan protocol.Event)
	m := NewModel(events, nil, nil, 2)

	m, cmd := update(t, m, EventMsg{Kind: protocol.EventClick, Source: config.SourceButton, A: int32(core.DoubleClick)})
	assert.NotNil(t, cmd)
	m, _ = update(t, m, EventMsg{Kind: protocol.EventPosition, Source: config.SourceEncoder, A: 4, B: 1})
	m, _ = update(t, m, EventMsg{Kind: protocol.EventPosition, Source: config.SourceEncoder, A: 5, B: 1})

	assert.Equal(t, "double_click", m.lastClick)
	assert.Equal(t, int16(5), m.position)
	assert.True(t, m.forward)
	require.Len(t, m.lines, 2)
	assert.Contains(t, m.lines[1], "position 5 cw")

	view := m.View()
	assert.Contains(t, view, "tickio monitor")
	assert.Contains(t, view, "5 >")
	assert.Contains(t, view, "double_click")
	assert.NotContains(t, view, "waiting for events")
}

func TestListenForEventsQuitsOnClose(t *testing.T) {
	events := make(chan protocol.Event, 1)
	events <- protocol.Event{Kind: protocol.EventClick, A: 1}
	close(events)

	msg := ListenForEvents(events)()
	assert.Equal(t, EventMsg{Kind: protocol.EventClick, A: 1}, msg)

	msg = ListenForEvents(events)()
	assert.IsType(t, tea.QuitMsg{}, msg)
}

func TestPromptSendsCommands(t *testing.T) {
	var sent []string
	send := func(line string) error {
		if line == "bogus" {
			return errors.New("unknown command \"bogus\"")
		}
		sent = append(sent, line)
		return nil
	}
	stats := func() monitor.Stats { return monitor.Stats{Events: 7, Errors: 1} }
	m := NewModel(nil, send, stats, 0)

	m = typeLine(t, m, "set_color")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = typeLine(t, m, "1 2 33")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "set_color 1 2 3", m.input)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"set_color 1 2 3"}, sent)
	assert.Empty(t, m.input)
	assert.False(t, m.failed)
	assert.Contains(t, m.View(), "events 7")

	m = typeLine(t, m, "bogus")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.failed)
	assert.Contains(t, m.View(), "unknown command")
}

func TestClearAndQuit(t *testing.T) {
	m := NewModel(nil, nil, nil, 5)
	m, _ = update(t, m, EventMsg{Kind: protocol.EventClick, A: int32(core.SingleClick)})
	require.Len(t, m.lines, 1)

	m = typeLine(t, m, "clear")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.lines)

	m = typeLine(t, m, "set_report 1 1")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.failed, "no sender means read-only")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}
