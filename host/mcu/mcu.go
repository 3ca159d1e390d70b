// Package mcu is the host side of the device link: it sends commands and
// exposes the event stream.
package mcu

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"tickio/core"
	"tickio/host/serial"
	"tickio/protocol"
)

var ErrNotConnected = errors.New("not connected to device")

// MCU represents a connection to a device
type MCU struct {
	logger *zap.Logger

	mu   sync.Mutex
	port serial.Port
	seq  uint8
	sent uint64
	buf  []byte
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU(logger *zap.Logger) *MCU {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCU{logger: logger, buf: make([]byte, 0, protocol.MessageMax)}
}

// Connect opens the serial device with default settings
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens the serial device described by cfg
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	m.Attach(port)
	m.logger.Info("connected", zap.String("device", cfg.Device), zap.Int("baud", cfg.Baud))
	return nil
}

// Attach uses an already open port
func (m *MCU) Attach(port serial.Port) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.port = port
	m.seq = 0
}

// Close closes the connection to the device
func (m *MCU) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil {
		return nil
	}
	err := m.port.Close()
	m.port = nil
	return err
}

// IsConnected returns whether a port is attached
func (m *MCU) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port != nil
}

// Reader returns the event stream coming from the device
func (m *MCU) Reader() (io.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil {
		return nil, ErrNotConnected
	}
	return m.port, nil
}

// Sent returns the number of commands written
func (m *MCU) Sent() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// SendCommand frames and writes one command
func (m *MCU) SendCommand(id protocol.CommandID, args ...int32) error {
	info, ok := id.Info()
	if !ok {
		return fmt.Errorf("unknown command id %d", id)
	}
	if len(args) != len(info.Args) {
		return fmt.Errorf("%s takes %d arguments, got %d", info.Name, len(info.Args), len(args))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil {
		return ErrNotConnected
	}

	frame, err := protocol.AppendCommand(m.buf[:0], m.seq, id, args...)
	if err != nil {
		return fmt.Errorf("encode %s: %w", info.Name, err)
	}
	if _, err := m.port.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", info.Name, err)
	}
	m.seq = (m.seq + 1) & protocol.MessageSeqMask
	m.sent++
	m.logger.Debug("command sent",
		zap.String("command", info.Name),
		zap.Int32s("args", args),
	)
	return nil
}

// Send parses a command line and sends it
func (m *MCU) Send(line string) error {
	id, args, err := ParseCommandLine(line)
	if err != nil {
		return err
	}
	return m.SendCommand(id, args...)
}

// ParseCommandLine splits a line like `set_animation breathe` or
// `set_color 255 64 0` into a command id and arguments. Animation
// names and on/off are accepted where a number is expected.
func ParseCommandLine(line string) (protocol.CommandID, []int32, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return 0, nil, fmt.Errorf("parse %q: %w", line, err)
	}
	return ParseCommand(words)
}

// ParseCommand resolves an already split command line
func ParseCommand(words []string) (protocol.CommandID, []int32, error) {
	if len(words) == 0 {
		return 0, nil, fmt.Errorf("empty command")
	}

	info, ok := protocol.LookupCommand(words[0])
	if !ok {
		return 0, nil, fmt.Errorf("unknown command %q", words[0])
	}
	words = words[1:]
	if len(words) != len(info.Args) {
		return 0, nil, fmt.Errorf("%s expects %d arguments (%v), got %d",
			info.Name, len(info.Args), info.Args, len(words))
	}

	args := make([]int32, len(words))
	for i, w := range words {
		v, err := parseArg(w)
		if err != nil {
			return 0, nil, fmt.Errorf("%s %s: %w", info.Name, info.Args[i], err)
		}
		args[i] = v
	}
	return info.ID, args, nil
}

func parseArg(w string) (int32, error) {
	switch w {
	case "on", "true":
		return 1, nil
	case "off", "false":
		return 0, nil
	}
	if anim, ok := core.ParseAnimation(w); ok {
		return int32(anim), nil
	}
	v, err := strconv.ParseInt(w, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", w)
	}
	return int32(v), nil
}
