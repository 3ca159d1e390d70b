package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"tickio/host/logging"
	"tickio/host/mcu"
	"tickio/host/monitor"
	"tickio/host/settings"
	"tickio/host/tui"
	"tickio/protocol"
)

var (
	configFile = flag.String("config", "", "Settings file (YAML); TICKIO_* environment variables override it")
	device     = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud       = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	listen     = flag.String("listen", "", "Serve events over websocket on this address, e.g. :8080")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log-format", "console", "Log format: console or json")
	logFile    = flag.String("log-file", "", "Also write JSON logs to this rotating file")
	dashboard  = flag.Bool("tui", false, "Show a live dashboard instead of the line prompt (logs go to -log-file only)")
)

func main() {
	flag.Parse()

	loader, err := settings.NewLoader(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	s := applyFlags(loader.Get())
	if *dashboard {
		s.Log.Quiet = true
	}

	logger, level, err := logging.NewLeveled(s.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	loader.Watch(logger, func(next settings.Settings) {
		next = applyFlags(next)
		if l, err := logging.ParseLevel(next.Log.Level); err == nil && l != level.Level() {
			level.SetLevel(l)
			logger.Info("log level changed", zap.Stringer("level", l))
		}
	})

	if err := run(logger, s); err != nil {
		logger.Error("monitor failed", zap.Error(err))
		os.Exit(1)
	}
}

// applyFlags overrides settings with the flags given on the command line
func applyFlags(s settings.Settings) settings.Settings {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			s.Serial.Device = *device
		case "baud":
			s.Serial.Baud = *baud
		case "listen":
			s.Monitor.Listen = *listen
		case "log-level":
			s.Log.Level = *logLevel
		case "log-format":
			s.Log.Format = *logFormat
		case "log-file":
			s.Log.File = *logFile
		}
	})
	return s
}

func run(logger *zap.Logger, s settings.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link := mcu.NewMCU(logger)
	if err := link.ConnectWithConfig(s.Serial.Config()); err != nil {
		return err
	}
	defer link.Close()

	var hub *monitor.Hub
	if s.Monitor.Listen != "" {
		hub = monitor.NewHub(logger, monitor.HubConfig{})
		go hub.Run(ctx)

		mux := http.NewServeMux()
		mux.Handle(s.Monitor.Path, hub)
		srv := &http.Server{Addr: s.Monitor.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("websocket listening", zap.String("addr", s.Monitor.Listen), zap.String("path", s.Monitor.Path))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("websocket server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	mon := monitor.New(logger, hub)
	reader, err := link.Reader()
	if err != nil {
		return err
	}

	var events chan protocol.Event
	if *dashboard {
		events = make(chan protocol.Event, 64)
		mon.OnEvent(func(ev protocol.Event) {
			select {
			case events <- ev:
			default:
			}
		})
	}

	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx, reader) }()

	if *dashboard {
		go func() {
			m := tui.NewModel(events, link.Send, mon.Stats, s.Monitor.History)
			if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				logger.Error("dashboard", zap.Error(err))
			}
			stop()
		}()
	} else {
		go commandLoop(ctx, stop, link, mon, logger)
	}

	select {
	case <-ctx.Done():
		// Closing the port unblocks the reader
		_ = link.Close()
		<-done
		return nil
	case err := <-done:
		return err
	}
}

func commandLoop(ctx context.Context, stop context.CancelFunc, link *mcu.MCU, mon *monitor.Monitor, logger *zap.Logger) {
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for ctx.Err() == nil {
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.Fields(line)[0] {
		case "quit", "exit", "q":
			stop()
			return
		case "help", "?":
			printHelp()
		case "stats":
			printStats(mon.Stats(), link.Sent())
		default:
			if err := link.Send(line); err != nil {
				logger.Warn("command not sent", zap.String("line", line), zap.Error(err))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("reading input", zap.Error(err))
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help           - Show this help message")
	fmt.Println("  stats          - Show event counters")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println("\nDevice commands:")
	for _, c := range protocol.Commands {
		fmt.Printf("  %-14s %s\n", c.Name, strings.Join(c.Args, " "))
	}
	fmt.Println("\nAnimations: off scanner chase breathe flicker")
	fmt.Println()
}

func printStats(s monitor.Stats, sent uint64) {
	fmt.Printf("events=%d errors=%d seq_gaps=%d commands_sent=%d\n", s.Events, s.Errors, s.SeqGaps, sent)
	for kind, n := range s.ByKind {
		fmt.Printf("  %-10s %d\n", kind, n)
	}
}
