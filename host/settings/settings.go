// Package settings loads the host tool settings. Values come from compiled
// defaults, an optional YAML file and TICKIO_* environment variables, in
// increasing priority. Command-line flags are applied on top by each tool.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"tickio/host/logging"
	"tickio/host/serial"
)

// EnvPrefix is prepended to environment overrides, e.g. TICKIO_SERIAL_DEVICE
const EnvPrefix = "TICKIO"

var ErrInvalid = errors.New("invalid settings")

// Settings is the full host tool configuration
type Settings struct {
	Serial  SerialSettings  `mapstructure:"serial"`
	Log     logging.Config  `mapstructure:"log"`
	Monitor MonitorSettings `mapstructure:"monitor"`
	MIDI    MIDISettings    `mapstructure:"midi"`
}

// SerialSettings selects the device link
type SerialSettings struct {
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// Config converts to a serial port configuration
func (s SerialSettings) Config() *serial.Config {
	return &serial.Config{
		Device:      s.Device,
		Baud:        s.Baud,
		ReadTimeout: s.ReadTimeout,
	}
}

// MonitorSettings configures the event monitor outputs
type MonitorSettings struct {
	Listen  string `mapstructure:"listen"`  // Websocket address, empty = off
	Path    string `mapstructure:"path"`    // Websocket path
	History int    `mapstructure:"history"` // Events kept by the dashboard
}

// MIDISettings maps device events to MIDI messages
type MIDISettings struct {
	Port       string `mapstructure:"port"`        // Output port name (substring match)
	Channel    uint8  `mapstructure:"channel"`     // 0-15
	ClickNote  uint8  `mapstructure:"click_note"`  // Single click; double and long press use the next two notes
	Velocity   uint8  `mapstructure:"velocity"`    // Note-on velocity
	PositionCC uint8  `mapstructure:"position_cc"` // Controller for encoder positions
	Min        int16  `mapstructure:"min"`         // Position mapped to CC 0
	Max        int16  `mapstructure:"max"`         // Position mapped to CC 127
}

func setDefaults(v *viper.Viper) {
	d := logging.DefaultConfig()

	v.SetDefault("serial.device", "/dev/ttyACM0")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.read_timeout", "100ms")

	v.SetDefault("log.level", d.Level)
	v.SetDefault("log.format", d.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.quiet", false)
	v.SetDefault("log.max_size_mb", d.MaxSizeMB)
	v.SetDefault("log.max_backups", d.MaxBackups)
	v.SetDefault("log.max_age_days", d.MaxAgeDays)
	v.SetDefault("log.compress", d.Compress)

	v.SetDefault("monitor.listen", "")
	v.SetDefault("monitor.path", "/events")
	v.SetDefault("monitor.history", 20)

	v.SetDefault("midi.port", "")
	v.SetDefault("midi.channel", 0)
	v.SetDefault("midi.click_note", 60)
	v.SetDefault("midi.velocity", 100)
	v.SetDefault("midi.position_cc", 1)
	v.SetDefault("midi.min", 0)
	v.SetDefault("midi.max", 127)
}

// Default returns the compiled-in settings
func Default() Settings {
	s, err := decode(newViper())
	if err != nil {
		panic("settings: bad defaults: " + err.Error())
	}
	return s
}

// Validate checks ranges that the tools rely on
func (s Settings) Validate() error {
	if s.Serial.Device == "" {
		return fmt.Errorf("%w: serial.device is empty", ErrInvalid)
	}
	if s.Serial.Baud <= 0 {
		return fmt.Errorf("%w: serial.baud must be positive", ErrInvalid)
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if s.Monitor.History <= 0 {
		return fmt.Errorf("%w: monitor.history must be positive", ErrInvalid)
	}
	if !strings.HasPrefix(s.Monitor.Path, "/") {
		return fmt.Errorf("%w: monitor.path must start with /", ErrInvalid)
	}
	m := s.MIDI
	if m.Channel > 15 {
		return fmt.Errorf("%w: midi.channel must be 0-15", ErrInvalid)
	}
	if m.ClickNote > 125 || m.Velocity > 127 || m.PositionCC > 127 {
		return fmt.Errorf("%w: midi note, velocity and controller must fit in 7 bits", ErrInvalid)
	}
	if m.Min >= m.Max {
		return fmt.Errorf("%w: midi.min must be below midi.max", ErrInvalid)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Loader holds the settings read from one file and can follow changes to
// it.
type Loader struct {
	v    *viper.Viper
	path string

	mu      sync.RWMutex
	current Settings
}

// NewLoader reads defaults, the file at path (optional when empty) and the
// environment.
func NewLoader(path string) (*Loader, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	s, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Loader{v: v, path: path, current: s}, nil
}

// Load is NewLoader followed by Get
func Load(path string) (Settings, error) {
	l, err := NewLoader(path)
	if err != nil {
		return Settings{}, err
	}
	return l.Get(), nil
}

// Get returns the current settings
func (l *Loader) Get() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Watch reloads the file whenever it changes and hands valid settings to
// onChange. Invalid edits are logged and ignored. Watching without a file
// is a no-op.
func (l *Loader) Watch(logger *zap.Logger, onChange func(Settings)) {
	if l.path == "" {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("settings")

	l.v.OnConfigChange(func(e fsnotify.Event) {
		s, err := decode(l.v)
		if err == nil {
			err = s.Validate()
		}
		if err != nil {
			logger.Warn("settings reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}

		l.mu.Lock()
		l.current = s
		l.mu.Unlock()

		logger.Info("settings reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		if onChange != nil {
			onChange(s)
		}
	})
	l.v.WatchConfig()
}
