package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nyczoning/notifier/app/cfg"
)

func main() {
	config, err := cfg.Load()
	if errors.Is(err, cfg.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogging(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	slog.Info("Starting NYC zoning notifier", "version", config.Version, "command", config.Command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		slog.Error("Command failed", "command", config.Command, "error", err)
		closeLog()
		os.Exit(1)
	}
}

// setupLogging sends slog output to stderr, or to <logdir>/<RFC3339>.log when
// a log directory is configured.
func setupLogging(config *cfg.Cfg) (func(), error) {
	level := slog.LevelInfo
	if config.Debug {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}

	if config.LogDir != "" {
		if err := os.MkdirAll(config.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		path := filepath.Join(config.LogDir, time.Now().Format(time.RFC3339)+".log")
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = file
		closeLog = func() { file.Close() }
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))

	return closeLog, nil
}

func run(ctx context.Context, config *cfg.Cfg) error {
	if config.Command == cfg.CommandParse {
		return parseFiles(os.Stdout, config.Files)
	}

	app, err := newApp(config)
	if err != nil {
		return err
	}
	defer app.Close()

	switch config.Command {
	case cfg.CommandIngest:
		_, err = app.ingestTask("cli").Run(ctx)
	case cfg.CommandNotify:
		_, err = app.notifyTask("cli").Run(ctx)
	case cfg.CommandRun:
		if _, err = app.ingestTask("cli").Run(ctx); err != nil {
			return err
		}
		_, err = app.notifyTask("cli").Run(ctx)
	case cfg.CommandReset:
		err = app.store.Clear(ctx)
		if err == nil {
			slog.Info("All meetings removed")
		}
	case cfg.CommandServe:
		err = app.serve(ctx)
	default:
		err = fmt.Errorf("unknown command %q", config.Command)
	}

	return err
}
