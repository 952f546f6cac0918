// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/sagielster/DeviceLinkAssistant/lib/capture"
	"github.com/sagielster/DeviceLinkAssistant/lib/clock"
	"github.com/sagielster/DeviceLinkAssistant/lib/coach"
	"github.com/sagielster/DeviceLinkAssistant/lib/config"
	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
	"github.com/sagielster/DeviceLinkAssistant/lib/version"
	"github.com/sagielster/DeviceLinkAssistant/lib/vision"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	frames      string
	configPath  string
	prefsPath   string
	interval    time.Duration
	loop        bool
	transcript  string
	dump        string
	diagnostic  bool
	logLevel    string
	color       string
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("coach-replay", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.frames, "frames", "", "directory of screenshots to replay (required)")
	flagSet.StringVar(&opts.configPath, "config", "", "coach YAML config file (default: built-in defaults)")
	flagSet.StringVar(&opts.prefsPath, "prefs", "", "preferences YAML file with API keys and coach context (default: prefs path from --config)")
	flagSet.DurationVar(&opts.interval, "interval", capture.DefaultInterval, "time between frames")
	flagSet.BoolVar(&opts.loop, "loop", false, "restart from the first screenshot after the last")
	flagSet.StringVar(&opts.transcript, "transcript", "", "append every bus state to this CBOR file")
	flagSet.StringVar(&opts.dump, "dump", "", "print a transcript file and exit")
	flagSet.BoolVar(&opts.diagnostic, "diag", false, "with --dump, print CBOR diagnostic notation")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn, or error")
	flagSet.StringVar(&opts.color, "color", string(colorAuto), "auto, always, or never")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", extra)
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "coach-replay %s\n", version.Full())
		return nil
	}
	if opts.dump != "" {
		return dumpTranscript(opts.dump, opts.diagnostic, stdout)
	}
	if opts.frames == "" {
		return fmt.Errorf("--frames is required")
	}

	mode, err := parseColorMode(opts.color)
	if err != nil {
		return err
	}
	logger, err := newLogger(stderr, opts.logLevel, mode)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if opts.configPath != "" {
		if cfg, err = config.LoadFile(opts.configPath); err != nil {
			return err
		}
	}
	prefsPath := opts.prefsPath
	if prefsPath == "" {
		prefsPath = cfg.Prefs
	}
	if prefsPath == "" {
		return fmt.Errorf("--prefs is required when the config names no prefs file")
	}
	store, err := openPrefs(prefsPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	hangups := make(chan os.Signal, 1)
	signal.Notify(hangups, syscall.SIGHUP)
	defer signal.Stop(hangups)

	pool := &frame.Pool{}
	source := capture.NewSequence(capture.SequenceConfig{
		Dir:      opts.frames,
		Display:  cfg.Display,
		Interval: opts.interval,
		Loop:     opts.loop,
		Pool:     pool,
		Logger:   logger.With("component", "capture"),
	})

	plannerConfig := cfg.PlannerConfig(store)
	plannerConfig.Logger = logger.With("component", "planner")
	locatorConfig := cfg.LocatorConfig(store)
	locatorConfig.Logger = logger.With("component", "locator")

	controller, err := coach.New(coach.Options{
		Settings: cfg.Coach,
		Display:  cfg.Display,
		Source:   source,
		Surface:  newTerminalSurface(stdout, cfg.Display, mode),
		Planner:  vision.NewOpenAIPlanner(plannerConfig),
		Locator:  vision.NewGeminiLocator(locatorConfig),
		Prefs:    store,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var rec *recorder
	if opts.transcript != "" {
		file, err := os.OpenFile(opts.transcript, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			controller.Close()
			return fmt.Errorf("opening transcript: %w", err)
		}
		defer file.Close()
		rec = startRecorder(file, controller.Bus(), clock.Real(), logger, nil)
	}

	runErr := replay(ctx, controller, source, store, hangups, logger)

	if err := controller.Close(); err != nil {
		logger.Warn("closing coach", "error", err)
	}
	if rec != nil {
		if err := rec.stop(); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// replay runs the session until the sequence or ctx ends.
func replay(ctx context.Context, controller *coach.Controller, source *capture.Sequence, store *reloadingPrefs, hangups <-chan os.Signal, logger *slog.Logger) error {
	if err := controller.Start(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted")
			return nil

		case <-source.Done():
			controller.Settle()
			state := controller.Bus().Snapshot()
			attrs := []any{"phase", state.Phase.String(), "hint", state.Hint}
			if lock, ok := controller.CurrentLock(); ok {
				attrs = append(attrs, "instruction", lock.Instruction, "cx", lock.Target.CX, "cy", lock.Target.CY)
			}
			logger.Info("replay finished", attrs...)
			if !controller.Running() && state.Phase.Kind == coach.KindError {
				return fmt.Errorf("coach stopped: %s", state.Phase.Detail)
			}
			return nil

		case <-hangups:
			if err := store.reload(); err != nil {
				logger.Error("reloading prefs", "error", err)
				continue
			}
			coachContext := vision.ContextFromPrefs(store)
			logger.Info("prefs reloaded", "device", coachContext.SelectedDevice, "app", coachContext.ExpectedAppName)
			controller.UpdateContext(coachContext)
		}
	}
}

// newLogger returns a tint handler on stderr.
func newLogger(stderr io.Writer, levelName string, mode colorMode) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return slog.New(tint.NewHandler(stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !mode.enabled(stderr),
	})), nil
}
