// Command diarize runs speaker diarization on an audio file and writes a
// JSON report with segments, per-speaker statistics, and audio info.
//
// Diagnostics go to stderr; stdout carries a single JSON status line so
// callers can pipe it.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kbukum/diarize/app"
	"github.com/kbukum/diarize/cli"
	"github.com/kbukum/diarize/config"
	"github.com/kbukum/diarize/errors"
	"github.com/kbukum/diarize/history"
	"github.com/kbukum/diarize/logger"
	"github.com/kbukum/diarize/observability"
	"github.com/kbukum/diarize/version"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if stderrors.As(err, &exitErr) {
			// Flag-parse errors arrive with an empty message; the flag
			// package already reported them to stderr.
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errors.ExitCode(err))
	}
}

// run encapsulates the main application logic for easier testing and
// error handling.
func run(stdout io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, os.Stderr)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}
	if opts.ShowVersion {
		fmt.Fprintf(stdout, "diarize %s\n", version.GetShortVersion())
		return nil
	}

	var loaderOpts []config.LoaderOption
	if opts.ConfigFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.ConfigFile))
	}
	cfg, err := config.Load(loaderOpts...)
	if err != nil {
		return err
	}

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}
	cfg.Logging.ServiceName = cfg.Name
	logger.Init(cfg.Logging)
	logger.RegisterDefaults("progress")
	log := logger.New(&cfg.Logging, cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, log, stdout)

	if cfg.Observability.Enabled() {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Observability.Endpoint,
			Insecure:       cfg.Observability.Insecure,
			SampleRate:     cfg.Observability.SampleRate,
		})
		if err != nil {
			log.Warn("tracer init failed", logger.Fields("error", err.Error()))
		} else {
			defer func() { _ = tp.Shutdown(ctx) }()
		}

		mp, err := observability.InitMeter(ctx, observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Observability.Endpoint,
			Insecure:       cfg.Observability.Insecure,
			Interval:       cfg.Observability.MetricsInterval,
		})
		if err != nil {
			log.Warn("meter init failed", logger.Fields("error", err.Error()))
		} else {
			defer func() { _ = mp.Shutdown(ctx) }()
			metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
			if err != nil {
				log.Warn("metric instruments failed", logger.Fields("error", err.Error()))
			} else {
				a.WithMetrics(metrics)
			}
		}
	}

	if cfg.History.Enabled && cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			log.Warn("history store unavailable", logger.Fields("error", err.Error()))
		} else {
			defer store.Close()
			a.WithHistory(store)
		}
	}

	return a.Run(ctx, opts)
}
