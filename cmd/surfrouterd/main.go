// Package main implements the entry point for surfrouterd, the control
// surface router daemon. It connects a MIDI control surface to application
// handlers through a layered mapping table and broadcasts every state change
// to WebSocket subscribers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/j0KZ/K2-controller-design-sub000/config"
	"github.com/j0KZ/K2-controller-design-sub000/router"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "surfrouterd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting surfrouterd",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := config.LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		if _, err := cfg.LoadMapping(); err != nil {
			return fmt.Errorf("invalid mapping: %w", err)
		}
		slog.Info("Configuration is valid")
		return nil
	}

	r, err := router.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	return runWithSignalHandling(r, logger)
}

// runWithSignalHandling runs the router until SIGINT/SIGTERM; SIGHUP reloads
// the mapping table in place.
func runWithSignalHandling(r *router.Router, logger *slog.Logger) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			if err := r.ReloadFromFile(); err != nil {
				logger.Error("mapping reload failed", "error", err)
			}
		}
	}()

	slog.Info("surfrouterd started")
	err := r.Run(signalCtx)
	slog.Info("surfrouterd shutdown complete")
	return err
}
