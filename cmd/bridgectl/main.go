package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/woxQAQ/native-bridge/internal/config"
	"github.com/woxQAQ/native-bridge/internal/harness"
	"github.com/woxQAQ/native-bridge/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
	guestFile := flag.String("guest", "", "Extra Wasm file to check alongside the configured guests")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	logger.Info("Starting bridgectl",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	h, err := harness.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create harness", zap.Error(err))
		return 1
	}
	defer h.Close(context.Background())

	if *guestFile != "" {
		if _, err := h.Manager().LoadFile(ctx, *guestFile); err != nil {
			logger.Error("Failed to load guest", zap.String("path", *guestFile), zap.Error(err))
			return 1
		}
	}

	report, err := h.Run(ctx)
	if err != nil {
		logger.Error("Harness run failed", zap.Error(err))
		return 1
	}

	printReport(report)

	if !report.Passed() {
		return 1
	}
	return 0
}

func printReport(report *harness.Report) {
	if len(report.Guests) == 0 {
		fmt.Println("no guests checked")
		return
	}

	for _, g := range report.Guests {
		fmt.Printf("%s\n", g.Guest)
		for _, c := range g.Checks {
			if c.Passed() {
				fmt.Printf("  ok    %s\n", c.Name)
			} else {
				fmt.Printf("  FAIL  %s: %v\n", c.Name, c.Err)
			}
		}
	}
	fmt.Printf("%d guest(s), %d failure(s)\n", len(report.Guests), report.Failed())
}
