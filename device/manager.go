// Package device assembles the configured components into one polled
// firmware loop. Targets and the host simulator share it so both run the
// same wiring.
package device

import (
	"errors"
	"io"

	"tickio/config"
	"tickio/core"
)

var (
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("manager not initialized")
)

// fadeSequenceID tags step events of the fader
const fadeSequenceID = 0

// Manager coordinates all device components
type Manager struct {
	config config.DeviceConfig

	sched    core.Scheduler
	reporter *core.Reporter
	registry *core.CommandRegistry
	input    *core.CommandInput

	Button  *core.Button
	Encoder *core.Encoder
	Blinker *core.Blinker
	Fader   *core.Fader // nil when disabled
	Strip   *core.Strip // nil when disabled

	initialized bool
}

// NewManager validates cfg and returns an uninitialized manager
func NewManager(cfg config.DeviceConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		config:   cfg,
		registry: core.NewCommandRegistry(),
	}, nil
}

// Config returns the device configuration
func (m *Manager) Config() config.DeviceConfig { return m.config }

// Reporter returns the event reporter, nil before Initialize
func (m *Manager) Reporter() *core.Reporter { return m.reporter }

// Registry returns the command registry
func (m *Manager) Registry() *core.CommandRegistry { return m.registry }

// Input returns the command reader, nil when no input was given
func (m *Manager) Input() *core.CommandInput { return m.input }

// Initialize creates every component against the registered drivers.
// Events are framed onto out; in (may be nil) carries host commands.
// extra sinks see every event unfiltered.
func (m *Manager) Initialize(now core.Micros, out io.Writer, in core.ByteSource, extra ...core.EventSink) error {
	if m.initialized {
		return ErrAlreadyInitialized
	}

	m.reporter = core.NewReporter(out)
	m.reporter.ReportLevels = m.config.Report.Levels
	m.reporter.ReportSteps = m.config.Report.Steps
	core.SetTraceEnabled(!m.config.Report.NoTrace)

	var sink core.EventSink = m.reporter
	if len(extra) > 0 {
		sink = append(core.MultiSink{m.reporter}, extra...)
	}

	if in != nil {
		m.input = core.NewCommandInput(in, m.registry)
		if err := m.sched.Register(m.input); err != nil {
			return err
		}
	}

	if err := m.initButton(sink); err != nil {
		return err
	}
	if err := m.initEncoder(sink); err != nil {
		return err
	}
	if err := m.initLEDs(now, sink); err != nil {
		return err
	}
	if err := m.initFade(now, sink); err != nil {
		return err
	}
	if err := m.initStrip(now, sink); err != nil {
		return err
	}

	core.RegisterReportCommands(m.registry, m.reporter)
	m.initialized = true
	return nil
}

func (m *Manager) initButton(sink core.EventSink) error {
	b := m.config.Button
	btn, err := core.NewButton(config.SourceButton, config.Pins(b.Pin), b.ActiveLow, m.config.ButtonClickConfig(), sink)
	if err != nil {
		return err
	}
	m.Button = btn
	return m.sched.Register(btn)
}

func (m *Manager) initEncoder(sink core.EventSink) error {
	e := m.config.Encoder
	enc, err := core.NewEncoder(config.SourceEncoder, e.Label, config.Pins(e.Clk), config.Pins(e.Dt), m.config.EncoderConfig(), sink)
	if err != nil {
		return err
	}
	m.Encoder = enc
	core.RegisterEncoderCommands(m.registry, enc)
	return m.sched.Register(enc)
}

func (m *Manager) initLEDs(now core.Micros, sink core.EventSink) error {
	m.Blinker = core.NewBlinker(config.SourceLEDs, sink)
	for _, led := range m.config.LEDs {
		if _, err := m.Blinker.Add(now, config.Pins(led.Pin), led.ActiveLow, led.Pattern()); err != nil {
			return err
		}
	}
	core.RegisterBlinkerCommands(m.registry, m.Blinker)
	return m.sched.Register(m.Blinker)
}

func (m *Manager) initFade(now core.Micros, sink core.EventSink) error {
	if !m.config.Fade.Enabled {
		return nil
	}
	f, err := core.NewFader(config.SourceFade, fadeSequenceID, m.config.FadeConfig(), sink)
	if err != nil {
		return err
	}
	if err := f.Restart(now); err != nil {
		return err
	}
	m.Fader = f
	return m.sched.Register(f)
}

func (m *Manager) initStrip(now core.Micros, sink core.EventSink) error {
	if !m.config.Strip.Enabled {
		return nil
	}
	cfg, err := m.config.StripConfig()
	if err != nil {
		return err
	}
	s, err := core.NewStrip(config.SourceStrip, cfg, sink)
	if err != nil {
		return err
	}
	if err := s.SetAnimation(now, cfg.Animation); err != nil {
		return err
	}
	m.Strip = s
	core.RegisterStripCommands(m.registry, s)
	return m.sched.Register(s)
}

// Poll runs one pass over every component
func (m *Manager) Poll(now core.Micros) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	m.sched.RunOnce(now)
	return nil
}

// Run polls until keepRunning returns false
func (m *Manager) Run(clock core.Clock, keepRunning func() bool) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	m.sched.Run(clock, keepRunning)
	return nil
}

// Iterations returns the number of completed loop passes
func (m *Manager) Iterations() uint32 { return m.sched.Iterations() }
