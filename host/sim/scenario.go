// Package sim runs the device firmware against fake drivers on a virtual
// clock. Scenarios script inputs and list the events expected back.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"

	"tickio/config"
	"tickio/host/mcu"
	"tickio/protocol"
)

// Scenario is one scripted run
type Scenario struct {
	Name   string        `yaml:"name"`
	Tick   time.Duration `yaml:"tick"`   // Loop period, default 1ms
	Detent time.Duration `yaml:"detent"` // Gap between encoder transitions, default 5ms
	Tail   time.Duration `yaml:"tail"`   // Run time after the last step, default 1s
	Device yaml.Node     `yaml:"device"` // Overrides on top of the default device
	Steps  []string      `yaml:"steps"`
	Expect []string      `yaml:"expect"`
}

// Step is one parsed scenario line: `<at> <target> <verb> [args...]`
type Step struct {
	At     time.Duration
	Target string
	Verb   string
	Args   []string
}

const (
	defaultTick   = time.Millisecond
	defaultDetent = 5 * time.Millisecond
	defaultTail   = time.Second
	defaultClick  = 80 * time.Millisecond
)

var ErrBadStep = errors.New("bad step")

// LoadScenario reads a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes a scenario and fills in defaults
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if s.Tick <= 0 {
		s.Tick = defaultTick
	}
	if s.Detent <= 0 {
		s.Detent = defaultDetent
	}
	if s.Tail <= 0 {
		s.Tail = defaultTail
	}
	if _, err := s.ParseSteps(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeviceConfig returns the default device with the scenario overrides
// applied
func (s *Scenario) DeviceConfig() (config.DeviceConfig, error) {
	cfg := config.DefaultDeviceConfig()
	if s.Device.Kind == 0 {
		return cfg, nil
	}
	raw, err := yaml.Marshal(&s.Device)
	if err != nil {
		return cfg, fmt.Errorf("device overrides: %w", err)
	}
	if err := config.Decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("device overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("device overrides: %w", err)
	}
	return cfg, nil
}

// ParseSteps parses every step line
func (s *Scenario) ParseSteps() ([]Step, error) {
	steps := make([]Step, 0, len(s.Steps))
	for i, line := range s.Steps {
		st, err := ParseStep(line)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, st)
	}
	return steps, nil
}

// ParseStep parses one step line
func ParseStep(line string) (Step, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return Step{}, fmt.Errorf("%w: %q: %v", ErrBadStep, line, err)
	}
	if len(words) < 2 {
		return Step{}, fmt.Errorf("%w: %q: want `<at> <target> ...`", ErrBadStep, line)
	}
	at, err := time.ParseDuration(words[0])
	if err != nil || at < 0 {
		return Step{}, fmt.Errorf("%w: %q: bad time %q", ErrBadStep, line, words[0])
	}

	st := Step{At: at, Target: words[1]}
	if len(words) > 2 {
		st.Verb = words[2]
		st.Args = words[3:]
	}

	if err := st.check(); err != nil {
		return Step{}, fmt.Errorf("%w: %q: %v", ErrBadStep, line, err)
	}
	return st, nil
}

func (st Step) check() error {
	switch st.Target {
	case "button":
		switch st.Verb {
		case "down", "up":
			return wantArgs(st, 0)
		case "click", "press":
			if st.Verb == "click" && len(st.Args) == 0 {
				return nil
			}
			if err := wantArgs(st, 1); err != nil {
				return err
			}
			d, err := time.ParseDuration(st.Args[0])
			if err != nil || d <= 0 {
				return fmt.Errorf("bad hold %q", st.Args[0])
			}
			return nil
		}
	case "encoder":
		if st.Verb != "cw" && st.Verb != "ccw" {
			break
		}
		if len(st.Args) == 0 {
			return nil
		}
		if err := wantArgs(st, 1); err != nil {
			return err
		}
		n, err := strconv.Atoi(st.Args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("bad detent count %q", st.Args[0])
		}
		return nil
	case "command":
		_, _, err := st.Command()
		return err
	case "wait":
		return nil
	}
	return fmt.Errorf("unknown action %q %q", st.Target, st.Verb)
}

func wantArgs(st Step, n int) error {
	if len(st.Args) != n {
		return fmt.Errorf("%s %s takes %d arguments", st.Target, st.Verb, n)
	}
	return nil
}

// Detents returns the encoder step count of an encoder step
func (st Step) Detents() int {
	if len(st.Args) == 0 {
		return 1
	}
	n, _ := strconv.Atoi(st.Args[0])
	return n
}

// Hold returns the press duration of a button step
func (st Step) Hold() time.Duration {
	if len(st.Args) == 0 {
		return defaultClick
	}
	d, _ := time.ParseDuration(st.Args[0])
	return d
}

// Command resolves a command step
func (st Step) Command() (protocol.CommandID, []int32, error) {
	return mcu.ParseCommand(append([]string{st.Verb}, st.Args...))
}
