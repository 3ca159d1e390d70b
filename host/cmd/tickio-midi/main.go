package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.uber.org/zap"

	"tickio/host/logging"
	"tickio/host/mcu"
	"tickio/host/midi"
	"tickio/host/monitor"
	"tickio/host/settings"
)

var (
	configFile = flag.String("config", "", "Settings file (YAML); TICKIO_* environment variables override it")
	device     = flag.String("device", "/dev/ttyACM0", "Serial device path")
	port       = flag.String("port", "", "MIDI output port name (substring, default first port)")
	channel    = flag.Int("channel", 0, "MIDI channel 0-15")
	list       = flag.Bool("list", false, "List MIDI output ports and exit")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	if *list {
		for i, name := range midi.PortNames() {
			fmt.Printf("%d: %s\n", i, name)
		}
		return
	}

	loader, err := settings.NewLoader(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	s := applyFlags(loader.Get())
	if err := s.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(s.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, loader, s); err != nil {
		logger.Error("midi bridge failed", zap.Error(err))
		os.Exit(1)
	}
}

func applyFlags(s settings.Settings) settings.Settings {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			s.Serial.Device = *device
		case "port":
			s.MIDI.Port = *port
		case "channel":
			s.MIDI.Channel = uint8(*channel)
		case "log-level":
			s.Log.Level = *logLevel
		}
	})
	return s
}

func run(logger *zap.Logger, loader *settings.Loader, s settings.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, send, err := midi.OpenOutPort(s.MIDI.Port)
	if err != nil {
		return fmt.Errorf("open MIDI port %q: %w", s.MIDI.Port, err)
	}
	defer out.Close()
	logger.Info("midi output", zap.String("port", out.String()), zap.Uint8("channel", s.MIDI.Channel))

	bridge := midi.NewBridge(logger, send, midi.MappingFrom(s.MIDI))
	loader.Watch(logger, func(next settings.Settings) {
		bridge.SetMapping(midi.MappingFrom(applyFlags(next).MIDI))
	})

	link := mcu.NewMCU(logger)
	if err := link.ConnectWithConfig(s.Serial.Config()); err != nil {
		return err
	}
	defer link.Close()

	reader, err := link.Reader()
	if err != nil {
		return err
	}

	mon := monitor.New(logger, nil)
	mon.OnEvent(bridge.HandleEvent)

	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx, reader) }()

	select {
	case <-ctx.Done():
		_ = link.Close()
		<-done
	case err = <-done:
	}

	sent, failed := bridge.Stats()
	logger.Info("midi bridge stopped", zap.Uint64("sent", sent), zap.Uint64("failed", failed))
	return err
}
