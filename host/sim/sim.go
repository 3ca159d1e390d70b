package sim

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tickio/config"
	"tickio/core"
	"tickio/device"
	"tickio/host/monitor"
	"tickio/protocol"
)

// action is one input change at a point of virtual time
type action struct {
	at    core.Micros
	apply func() error
}

// inputQueue carries host command frames into the device
type inputQueue struct {
	bytes.Buffer
}

func (q *inputQueue) Buffered() int { return q.Len() }

type feedWriter func([]byte)

func (f feedWriter) Write(p []byte) (int, error) {
	f(p)
	return len(p), nil
}

// Result is what a run produced
type Result struct {
	Events   []protocol.Event // Everything the host would have decoded
	Stats    monitor.Stats
	Hardware *Hardware
	Device   *device.Manager
	End      core.Micros
}

// Runner executes one scenario
type Runner struct {
	logger   *zap.Logger
	scenario *Scenario
	cfg      config.DeviceConfig
	hw       *Hardware
	input    *inputQueue
	cmdSeq   uint8
	actions  []action
}

// NewRunner prepares a scenario run
func NewRunner(s *Scenario, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := s.DeviceConfig()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		logger:   logger.Named("sim"),
		scenario: s,
		cfg:      cfg,
		hw:       NewHardware(),
		input:    &inputQueue{},
	}

	steps, err := s.ParseSteps()
	if err != nil {
		return nil, err
	}
	for _, st := range steps {
		r.schedule(st)
	}
	sort.SliceStable(r.actions, func(i, j int) bool { return r.actions[i].at < r.actions[j].at })
	return r, nil
}

// Run drives the device until the tail after the last step has elapsed
func (r *Runner) Run() (*Result, error) {
	r.hw.Install()

	mgr, err := device.NewManager(r.cfg)
	if err != nil {
		return nil, err
	}

	mon := monitor.New(r.logger, nil)
	res := &Result{Hardware: r.hw, Device: mgr}
	mon.OnEvent(func(ev protocol.Event) { res.Events = append(res.Events, ev) })

	if err := mgr.Initialize(0, feedWriter(mon.Feed), r.input); err != nil {
		return nil, fmt.Errorf("initialize device: %w", err)
	}

	end := r.lastStep() + core.FromDuration(r.scenario.Tail)
	tick := core.FromDuration(r.scenario.Tick)
	next := 0

	r.logger.Info("scenario start",
		zap.String("name", r.scenario.Name),
		zap.Duration("length", end.Duration()),
		zap.Int("actions", len(r.actions)),
	)

	for now := core.Micros(0); now <= end; now += tick {
		for next < len(r.actions) && r.actions[next].at <= now {
			if err := r.actions[next].apply(); err != nil {
				return nil, fmt.Errorf("at %s: %w", r.actions[next].at.Duration(), err)
			}
			next++
		}
		if err := mgr.Poll(now); err != nil {
			return nil, err
		}
	}

	res.End = end
	res.Stats = mon.Stats()
	if in := mgr.Input(); in != nil && in.Errors() > 0 {
		r.logger.Warn("device rejected commands", zap.Uint32("errors", in.Errors()), zap.Error(in.LastError()))
	}
	r.logger.Info("scenario done",
		zap.String("name", r.scenario.Name),
		zap.Uint64("events", res.Stats.Events),
		zap.Int("strip_frames", r.hw.Strip.Frames()),
	)
	return res, nil
}

func (r *Runner) lastStep() core.Micros {
	var last core.Micros
	for _, a := range r.actions {
		if a.at > last {
			last = a.at
		}
	}
	return last
}

func (r *Runner) at(d time.Duration, fn func() error) {
	r.actions = append(r.actions, action{at: core.FromDuration(d), apply: fn})
}

func (r *Runner) schedule(st Step) {
	switch st.Target {
	case "button":
		r.scheduleButton(st)
	case "encoder":
		r.scheduleEncoder(st)
	case "command":
		r.at(st.At, func() error { return r.sendCommand(st) })
	case "wait":
		r.at(st.At, func() error { return nil })
	}
}

func (r *Runner) scheduleButton(st Step) {
	pin := config.Pins(r.cfg.Button.Pin)
	pressed := !r.cfg.Button.ActiveLow
	set := func(level bool) func() error {
		return func() error {
			r.hw.GPIO.Drive(pin, level)
			return nil
		}
	}

	switch st.Verb {
	case "down":
		r.at(st.At, set(pressed))
	case "up":
		r.at(st.At, set(!pressed))
	case "click", "press":
		r.at(st.At, set(pressed))
		r.at(st.At+st.Hold(), set(!pressed))
	}
}

// scheduleEncoder emits two transitions per detent. Clockwise moves clk
// first, counter-clockwise moves dt first.
func (r *Runner) scheduleEncoder(st Step) {
	clk := config.Pins(r.cfg.Encoder.Clk)
	dt := config.Pins(r.cfg.Encoder.Dt)
	lead, follow := clk, dt
	if st.Verb == "ccw" {
		lead, follow = dt, clk
	}

	gap := r.scenario.Detent
	t := st.At
	for i := 0; i < st.Detents(); i++ {
		r.at(t, func() error {
			r.hw.GPIO.Drive(lead, !r.hw.GPIO.Level(follow))
			return nil
		})
		r.at(t+gap, func() error {
			r.hw.GPIO.Drive(follow, r.hw.GPIO.Level(lead))
			return nil
		})
		t += 2 * gap
	}
}

func (r *Runner) sendCommand(st Step) error {
	id, args, err := st.Command()
	if err != nil {
		return err
	}
	frame, err := protocol.AppendCommand(nil, r.cmdSeq, id, args...)
	if err != nil {
		return err
	}
	r.cmdSeq = (r.cmdSeq + 1) & protocol.MessageSeqMask
	_, _ = r.input.Write(frame)
	return nil
}

// Describe renders an event as the words expectations match against
func Describe(ev protocol.Event) []string {
	switch ev.Kind {
	case protocol.EventClick:
		return []string{"click", core.ClickKind(ev.A).String()}
	case protocol.EventPosition:
		dir := "backward"
		if ev.B != 0 {
			dir = "forward"
		}
		return []string{"position", strconv.Itoa(int(ev.A)), dir}
	case protocol.EventLevel:
		level := "off"
		if ev.B != 0 {
			level = "on"
		}
		return []string{"level", config.SourceName(ev.Source), strconv.Itoa(int(ev.A)), level}
	case protocol.EventStep:
		return []string{"step", config.SourceName(ev.Source), strconv.Itoa(int(ev.B))}
	default:
		return []string{ev.Kind.String()}
	}
}

func matches(ev protocol.Event, want []string) bool {
	got := Describe(ev)
	if len(want) > len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// Check verifies expectations against the events in order. A line such
// as "click double_click" must match a later event than the previous
// line; "no click single_click" must match no event at all.
func (res *Result) Check(expect []string) error {
	var errs error
	next := 0
	for _, line := range expect {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		if words[0] == "no" {
			for _, ev := range res.Events {
				if matches(ev, words[1:]) {
					errs = multierr.Append(errs, fmt.Errorf("unexpected %q at %dus", strings.Join(words[1:], " "), ev.Time))
					break
				}
			}
			continue
		}

		found := false
		for next < len(res.Events) {
			ev := res.Events[next]
			next++
			if matches(ev, words) {
				found = true
				break
			}
		}
		if !found {
			errs = multierr.Append(errs, fmt.Errorf("missing %q", line))
		}
	}
	return errs
}
