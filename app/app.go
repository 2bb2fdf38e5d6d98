// Package app orchestrates a single diarization run: validate input,
// probe the audio, invoke the backend, reshape the result, and report
// progress along the way.
package app

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/kbukum/diarize/audio"
	"github.com/kbukum/diarize/cli"
	"github.com/kbukum/diarize/config"
	"github.com/kbukum/diarize/diarization"
	"github.com/kbukum/diarize/diarization/pyannote"
	"github.com/kbukum/diarize/diarization/script"
	"github.com/kbukum/diarize/errors"
	"github.com/kbukum/diarize/history"
	"github.com/kbukum/diarize/logger"
	"github.com/kbukum/diarize/observability"
	"github.com/kbukum/diarize/progress"
	"github.com/kbukum/diarize/provider"
	"github.com/kbukum/diarize/report"
	"github.com/kbukum/diarize/validation"
)

// Progress milestones reported during a run.
const (
	milestoneStart       = 0.0
	milestoneBackendCall = 0.1
	milestoneBackendDone = 0.9
	milestoneReportBuilt = 1.0
)

// App runs diarization jobs against a configured backend.
type App struct {
	cfg     *config.Config
	log     *logger.Logger
	stdout  io.Writer
	reg     *provider.Registry[diarization.Provider]
	metrics *observability.Metrics
	store   *history.Store
}

// New creates an App with the built-in backends registered. metrics and
// store may be nil; the corresponding concerns are then skipped.
func New(cfg *config.Config, log *logger.Logger, stdout io.Writer) *App {
	reg := diarization.NewRegistry()
	reg.RegisterFactory(pyannote.ProviderName, pyannote.Factory())
	reg.RegisterFactory(script.ProviderName, script.Factory())

	return &App{
		cfg:    cfg,
		log:    log.WithComponent("app"),
		stdout: stdout,
		reg:    reg,
	}
}

// WithRegistry replaces the backend registry.
func (a *App) WithRegistry(reg *provider.Registry[diarization.Provider]) *App {
	a.reg = reg
	return a
}

// WithMetrics attaches metric instruments to the app.
func (a *App) WithMetrics(m *observability.Metrics) *App {
	a.metrics = m
	return a
}

// WithHistory attaches a run history store to the app.
func (a *App) WithHistory(s *history.Store) *App {
	a.store = s
	return a
}

// Run executes one diarization run end to end. The error payload and
// stdout status line are written even on failure; the returned error
// carries the process exit code.
func (a *App) Run(ctx context.Context, opts *cli.Options) error {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := a.log.WithFields(logger.Fields(
		logger.FieldRunID, runID,
		logger.FieldBackend, opts.Backend,
		logger.FieldAudioPath, opts.AudioPath,
	))

	reporter := a.newReporter(opts)
	reporter.Report(milestoneStart)

	rc := observability.NewRunContext(a.cfg.Name, opts.Backend, runID, a.metrics)
	ctx, span := rc.StartSpan(ctx, observability.SpanRun)

	rec := &history.Record{
		ID:        runID,
		AudioPath: opts.AudioPath,
		Backend:   opts.Backend,
		Model:     opts.Model,
	}

	result, err := a.run(ctx, opts, log, reporter)
	if err != nil {
		rc.End(ctx, span, "error", err)
		rec.Error = err.Error()
		rec.Processing = rc.Duration()
		a.saveHistory(ctx, log, rec)
		a.writeFailure(log, opts, err)
		return err
	}

	observability.SetSpanAttribute(ctx, observability.AttrSpeakerCount, result.rep.Results.SpeakerCount)
	observability.SetSpanAttribute(ctx, observability.AttrSegmentCount, len(result.rep.Results.Segments))
	rc.End(ctx, span, "success", nil)

	rec.Success = true
	rec.SpeakerCount = result.rep.Results.SpeakerCount
	rec.SegmentCount = len(result.rep.Results.Segments)
	rec.AudioDuration = result.rep.Results.TotalDuration
	rec.Processing = rc.Duration()
	a.saveHistory(ctx, log, rec)

	if a.metrics != nil {
		a.metrics.RecordDiarization(ctx, opts.Backend, rec.SpeakerCount, rec.SegmentCount)
	}

	log.Info("diarization complete", logger.Fields(
		"speaker_count", rec.SpeakerCount,
		"segment_count", rec.SegmentCount,
		"total_duration", rec.AudioDuration,
		"output_file", opts.OutputPath,
	))
	return report.WriteSuccessStatus(a.stdout, opts.OutputPath)
}

type runResult struct {
	rep *report.Report
}

func (a *App) run(ctx context.Context, opts *cli.Options, log *logger.Logger, reporter progress.Reporter) (*runResult, error) {
	v := validation.New()
	v.Required("audio_file", opts.AudioPath)
	v.FileExists("audio_file", opts.AudioPath)
	if err := v.Validate(); err != nil {
		return nil, errors.NotFound("audio file", opts.AudioPath)
	}

	p, err := a.buildProvider(opts, log)
	if err != nil {
		return nil, err
	}
	if !p.IsAvailable(ctx) {
		return nil, errors.ServiceUnavailable(opts.Backend)
	}

	// Probe is best-effort; the backend owns real decoding.
	info, err := audio.Probe(opts.AudioPath)
	if err != nil {
		log.Warn("audio probe failed, report will fall back to segment times",
			logger.Fields("error", err.Error()))
		info = nil
	}

	req := diarization.Request{
		AudioPath:   opts.AudioPath,
		Model:       opts.Model,
		MinSpeakers: opts.MinSpeakers,
		MaxSpeakers: opts.MaxSpeakers,
	}

	reporter.Report(milestoneBackendCall)
	resp, err := p.Diarize(ctx, req)
	if err != nil {
		return nil, err
	}
	reporter.Report(milestoneBackendDone)

	rep, err := report.Build(resp, info)
	if err != nil {
		return nil, err
	}
	if err := rep.WriteFile(opts.OutputPath); err != nil {
		return nil, err
	}
	reporter.Report(milestoneReportBuilt)

	return &runResult{rep: rep}, nil
}

// buildProvider constructs the selected backend wrapped in the logging,
// tracing, and metrics middleware chain.
func (a *App) buildProvider(opts *cli.Options, log *logger.Logger) (diarization.Provider, error) {
	p, err := a.reg.Create(opts.Backend, a.providerConfig(opts))
	if err != nil {
		return nil, err
	}

	middlewares := []provider.Middleware[diarization.Request, *diarization.Response]{
		provider.WithLogging[diarization.Request, *diarization.Response](log),
		provider.WithTracing[diarization.Request, *diarization.Response](a.cfg.Name),
	}
	if a.metrics != nil {
		middlewares = append(middlewares,
			provider.WithMetrics[diarization.Request, *diarization.Response](a.metrics))
	}

	chained := provider.Chain(middlewares...)(diarization.AsRequestResponse(p))
	return diarization.FromRequestResponse(chained), nil
}

// providerConfig builds the factory config map for the selected backend,
// applying the CLI timeout override.
func (a *App) providerConfig(opts *cli.Options) map[string]any {
	switch opts.Backend {
	case script.ProviderName:
		cfg := map[string]any{
			"python":      a.cfg.Script.Python,
			"script_path": a.cfg.Script.ScriptPath,
			"timeout":     a.cfg.Script.Timeout,
		}
		if opts.Timeout > 0 {
			cfg["timeout"] = opts.Timeout
		}
		return cfg
	default:
		cfg := map[string]any{
			"base_url": a.cfg.Pyannote.BaseURL,
			"timeout":  a.cfg.Pyannote.Timeout,
		}
		if opts.Timeout > 0 {
			cfg["timeout"] = opts.Timeout
		}
		return cfg
	}
}

func (a *App) newReporter(opts *cli.Options) progress.Reporter {
	if opts.ProgressFile == "" {
		return progress.Nop{}
	}
	return progress.NewFileReporter(opts.ProgressFile)
}

// writeFailure writes the error payload to the output file and the error
// status line to stdout. Both are best-effort; the run is already failed.
func (a *App) writeFailure(log *logger.Logger, opts *cli.Options, runErr error) {
	if opts.OutputPath != "" {
		if err := report.Failure(runErr).WriteFile(opts.OutputPath); err != nil {
			log.Warn("write failure report", logger.Fields("error", err.Error()))
		}
	}
	if err := report.WriteErrorStatus(a.stdout, runErr); err != nil {
		log.Warn("write error status", logger.Fields("error", err.Error()))
	}
}

func (a *App) saveHistory(ctx context.Context, log *logger.Logger, rec *history.Record) {
	if a.store == nil {
		return
	}
	if err := a.store.Save(ctx, rec); err != nil {
		log.Warn("save run history", logger.Fields("error", err.Error()))
	}
}
