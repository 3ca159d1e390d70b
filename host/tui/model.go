// Package tui is a terminal dashboard for a live device: the dial value,
// the last click, link counters, a scrolling event list and a command
// prompt.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tickio/config"
	"tickio/core"
	"tickio/host/monitor"
	"tickio/protocol"
)

const refreshInterval = 500 * time.Millisecond

// EventMsg carries one decoded device event into the model
type EventMsg protocol.Event

type tickMsg time.Time

// SendFunc delivers a command line to the device
type SendFunc func(line string) error

// StatsFunc reports the monitor counters
type StatsFunc func() monitor.Stats

type Styles struct {
	Header lipgloss.Style
	Box    lipgloss.Style
	Value  lipgloss.Style
	Dim    lipgloss.Style
	Error  lipgloss.Style
	Prompt lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(22),
		Value:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
	}
}

type Model struct {
	events  <-chan protocol.Event
	send    SendFunc
	stats   StatsFunc
	styles  Styles
	history int

	lines     []string
	position  int16
	forward   bool
	moved     bool
	lastClick string
	input     string
	status    string
	failed    bool
	quitting  bool
}

// NewModel builds a dashboard reading from events. send and stats may be
// nil.
func NewModel(events <-chan protocol.Event, send SendFunc, stats StatsFunc, history int) Model {
	if history <= 0 {
		history = 20
	}
	return Model{
		events:  events,
		send:    send,
		stats:   stats,
		styles:  DefaultStyles(),
		history: history,
	}
}

// ListenForEvents waits for the next device event
func ListenForEvents(events <-chan protocol.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return tea.Quit()
		}
		return EventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(ListenForEvents(m.events), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m.record(protocol.Event(msg))
		return m, ListenForEvents(m.events)

	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input)
	m.input = ""
	switch line {
	case "":
		return m, nil
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit
	case "clear":
		m.lines = nil
		m.status = ""
		return m, nil
	}

	if m.send == nil {
		m.status, m.failed = "read-only session", true
		return m, nil
	}
	if err := m.send(line); err != nil {
		m.status, m.failed = err.Error(), true
		return m, nil
	}
	m.status, m.failed = "sent: "+line, false
	return m, nil
}

func (m *Model) record(ev protocol.Event) {
	switch ev.Kind {
	case protocol.EventClick:
		m.lastClick = core.ClickKind(ev.A).String()
	case protocol.EventPosition:
		m.position = int16(ev.A)
		m.forward = ev.B != 0
		m.moved = true
	}

	m.lines = append(m.lines, Describe(ev))
	if over := len(m.lines) - m.history; over > 0 {
		m.lines = m.lines[over:]
	}
}

// Describe renders one event as a dashboard line
func Describe(ev protocol.Event) string {
	ts := time.Duration(ev.Time) * time.Microsecond
	src := config.SourceName(ev.Source)

	var what string
	switch ev.Kind {
	case protocol.EventClick:
		what = core.ClickKind(ev.A).String()
		if ev.B > 0 {
			what += fmt.Sprintf(" (held +%dms)", ev.B)
		}
	case protocol.EventPosition:
		dir := "ccw"
		if ev.B != 0 {
			dir = "cw"
		}
		what = fmt.Sprintf("position %d %s", ev.A, dir)
	case protocol.EventLevel:
		level := "off"
		if ev.B != 0 {
			level = "on"
		}
		what = fmt.Sprintf("slot %d %s", ev.A, level)
	case protocol.EventStep:
		what = fmt.Sprintf("sequence %d = %d", ev.A, ev.B)
	default:
		what = ev.Kind.String()
	}
	return fmt.Sprintf("%10.3fs  %-8s %s", ts.Seconds(), src, what)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.styles

	dial := "-"
	if m.moved {
		arrow := "<"
		if m.forward {
			arrow = ">"
		}
		dial = fmt.Sprintf("%d %s", m.position, arrow)
	}
	click := m.lastClick
	if click == "" {
		click = "-"
	}

	var stats monitor.Stats
	if m.stats != nil {
		stats = m.stats()
	}

	boxes := lipgloss.JoinHorizontal(lipgloss.Top,
		st.Box.Render("dial\n"+st.Value.Render(dial)),
		st.Box.Render("last click\n"+st.Value.Render(click)),
		st.Box.Render(fmt.Sprintf("events %d\nerrors %d  gaps %d", stats.Events, stats.Errors, stats.SeqGaps)),
	)

	var out strings.Builder
	out.WriteString(st.Header.Render("tickio monitor"))
	out.WriteString("\n")
	out.WriteString(boxes)
	out.WriteString("\n")

	if len(m.lines) == 0 {
		out.WriteString(st.Dim.Render("waiting for events..."))
		out.WriteString("\n")
	}
	for _, l := range m.lines {
		out.WriteString(l)
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(st.Prompt.Render("> "))
	out.WriteString(m.input)
	out.WriteString("\n")
	if m.status != "" {
		if m.failed {
			out.WriteString(st.Error.Render(m.status))
		} else {
			out.WriteString(st.Dim.Render(m.status))
		}
		out.WriteString("\n")
	}
	out.WriteString(st.Dim.Render("enter: send command  clear: clear list  esc: quit"))
	return out.String()
}
