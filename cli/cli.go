package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/diarize/errors"
	"github.com/kbukum/diarize/validation"
)

// DefaultModel is the pretrained pipeline used when --model is not given.
const DefaultModel = "pyannote/speaker-diarization-3.1"

// ExitError carries a process exit code alongside the message.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// Options holds the parsed command-line options for a diarization run.
type Options struct {
	// AudioPath is the positional audio file argument.
	AudioPath string `validate:"required"`
	// OutputPath is where the result JSON is written.
	OutputPath string `validate:"required"`
	// MinSpeakers / MaxSpeakers bound the expected speaker count (0 = unset).
	MinSpeakers int `validate:"min=0"`
	MaxSpeakers int `validate:"min=0"`
	// Model is the pretrained pipeline identifier.
	Model string
	// ProgressFile is the optional progress file path.
	ProgressFile string
	// Backend selects the diarization backend.
	Backend string `validate:"oneof=pyannote script"`
	// ConfigFile is an optional explicit config file path.
	ConfigFile string
	// Timeout overrides the backend timeout (0 = backend default).
	Timeout time.Duration
	// LogLevel / LogFormat override the logging configuration.
	LogLevel  string
	LogFormat string
	// ShowVersion prints version info and exits.
	ShowVersion bool
}

const usageText = `diarize - speaker diarization via a pretrained pipeline

Usage:
  diarize [options] AUDIO_FILE

Arguments:
  AUDIO_FILE
    Path to the audio file to diarize.

Options:
`

// Parse processes command-line arguments. It returns parsed Options, a
// boolean indicating the program should exit cleanly (help/version), or
// an ExitError with exit code 2 for usage errors.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("diarize", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	outputFlag := flagSet.String("output", "", "Path for the result JSON file (required).")
	oFlag := flagSet.String("o", "", "Path for the result JSON file (shorthand).")
	minSpeakers := flagSet.Int("min-speakers", 0, "Minimum expected number of speakers. 0 is auto.")
	maxSpeakers := flagSet.Int("max-speakers", 0, "Maximum expected number of speakers. 0 is auto.")
	model := flagSet.String("model", DefaultModel, "Pretrained diarization pipeline identifier.")
	progressFile := flagSet.String("progress-file", "", "Path to write progress updates to.")
	backend := flagSet.String("backend", "pyannote", "Diarization backend. Options: 'pyannote' or 'script'.")
	configFile := flagSet.String("config", "", "Path to an explicit config file.")
	timeout := flagSet.Duration("timeout", 0, "Backend timeout override (e.g. 120s). 0 uses the backend default.")
	logLevel := flagSet.String("log-level", "", "Log level override. Options: 'debug', 'info', 'warn', 'error'.")
	logFormat := flagSet.String("log-format", "", "Log format override. Options: 'console' or 'json'.")
	showVersion := flagSet.Bool("version", false, "Print version information and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		// The flag package has already written the error and usage to
		// output; an empty message keeps callers from repeating it.
		return nil, false, &ExitError{Code: errors.ExitUsage}
	}

	if *showVersion {
		return &Options{ShowVersion: true}, false, nil
	}

	outputPath := *outputFlag
	if outputPath == "" {
		outputPath = *oFlag
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, false, &ExitError{Code: errors.ExitUsage, Message: "missing required AUDIO_FILE argument"}
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{
			Code:    errors.ExitUsage,
			Message: fmt.Sprintf("unexpected extra arguments: %s", strings.Join(flagSet.Args()[1:], " ")),
		}
	}

	opts := &Options{
		AudioPath:    flagSet.Arg(0),
		OutputPath:   outputPath,
		MinSpeakers:  *minSpeakers,
		MaxSpeakers:  *maxSpeakers,
		Model:        *model,
		ProgressFile: *progressFile,
		Backend:      strings.ToLower(*backend),
		ConfigFile:   *configFile,
		Timeout:      *timeout,
		LogLevel:     strings.ToLower(*logLevel),
		LogFormat:    strings.ToLower(*logFormat),
	}

	if err := opts.Validate(); err != nil {
		return nil, false, &ExitError{Code: errors.ExitUsage, Message: err.Error()}
	}

	return opts, false, nil
}

// Validate checks option constraints beyond flag parsing.
func (o *Options) Validate() error {
	if err := validation.Validate(o); err != nil {
		return err
	}

	v := validation.New()
	v.Custom(o.MaxSpeakers == 0 || o.MinSpeakers <= o.MaxSpeakers,
		"max_speakers", "must be greater than or equal to min-speakers")
	if o.LogLevel != "" {
		v.OneOf("log_level", o.LogLevel, []string{"debug", "info", "warn", "error"})
	}
	if o.LogFormat != "" {
		v.OneOf("log_format", o.LogFormat, []string{"console", "json"})
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
