package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tickio/host/logging"
	"tickio/host/sim"
)

var (
	logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat = flag.String("log-format", "console", "Log format: console or json")
	watch     = flag.Bool("watch", false, "Rerun a scenario whenever its file changes")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] scenario.yaml...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = *logLevel
	logCfg.Format = *logFormat
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	failed := 0
	for _, path := range flag.Args() {
		if !report(path, logger) {
			failed++
		}
	}

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger.Info("watching scenarios", zap.Int("files", flag.NArg()))
		err := sim.Watch(ctx, flag.Args(), logger, func(path string) {
			report(path, logger)
		})
		if err != nil {
			logger.Error("watch failed", zap.Error(err))
			os.Exit(2)
		}
		return
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func report(path string, logger *zap.Logger) bool {
	if err := runScenario(path, logger); err != nil {
		logger.Error("scenario failed", zap.String("file", path), zap.Error(err))
		return false
	}
	logger.Info("scenario passed", zap.String("file", path))
	return true
}

func runScenario(path string, logger *zap.Logger) error {
	s, err := sim.LoadScenario(path)
	if err != nil {
		return err
	}
	r, err := sim.NewRunner(s, logger)
	if err != nil {
		return err
	}
	res, err := r.Run()
	if err != nil {
		return err
	}
	return res.Check(s.Expect)
}
