// Package script implements the diarization provider as a subprocess
// wrapper around a local helper script. The script loads a pretrained
// pyannote pipeline, diarizes the audio file given as its argument, and
// writes a JSON result document to the file named by --output; stdout
// carries only a short status line.
//
// Unlike the sidecar backend this pays model-load time on every run, but
// it needs no long-running service.
package script

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/diarize/diarization"
	"github.com/kbukum/diarize/errors"
	"github.com/kbukum/diarize/process"
	"github.com/kbukum/diarize/provider"
)

const (
	// ProviderName is the registered name for the script backend.
	ProviderName = "script"

	// tokenEnvVar carries the Hugging Face access token required to
	// download gated pyannote models.
	tokenEnvVar = "HUGGINGFACE_TOKEN"

	defaultPython  = "python3"
	defaultTimeout = 600 * time.Second
)

// Config holds configuration for the script backend.
type Config struct {
	// Python is the interpreter binary (resolved via PATH).
	Python string `json:"python"`
	// ScriptPath is the path to the diarization helper script.
	ScriptPath string `json:"script_path"`
	// Timeout bounds a single diarization run.
	Timeout time.Duration `json:"timeout"`
}

// Provider implements diarization.Provider by invoking the helper script.
type Provider struct {
	cfg    Config
	runner *process.Adapter
}

// NewProvider creates a new script diarization provider.
func NewProvider(cfg Config) *Provider {
	if cfg.Python == "" {
		cfg.Python = defaultPython
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Provider{
		cfg: cfg,
		runner: process.NewAdapter(process.Config{
			Name:    ProviderName,
			Timeout: cfg.Timeout,
		}),
	}
}

// Factory returns a provider.Factory that creates script providers
// from a generic config map.
func Factory() provider.Factory[diarization.Provider] {
	return func(cfg map[string]any) (diarization.Provider, error) {
		sc := Config{}
		if v, ok := cfg["python"].(string); ok {
			sc.Python = v
		}
		if v, ok := cfg["script_path"].(string); ok {
			sc.ScriptPath = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			sc.Timeout = v
		}
		if sc.ScriptPath == "" {
			return nil, errors.MissingField("script_path")
		}
		return NewProvider(sc), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks that both the interpreter and the script exist.
func (p *Provider) IsAvailable(_ context.Context) bool {
	if _, err := exec.LookPath(p.cfg.Python); err != nil {
		return false
	}
	info, err := os.Stat(p.cfg.ScriptPath)
	return err == nil && !info.IsDir()
}

// Diarize runs the helper script and parses the result document it
// writes to a temporary --output file.
func (p *Provider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, errors.NotFound("audio file", req.AudioPath).WithCause(err)
	}

	outFile, err := os.CreateTemp("", "diarize-*.json")
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("create result file: %w", err))
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	cmd := process.Command{
		Binary: p.cfg.Python,
		Args:   p.scriptArgs(req, outPath),
	}
	if token := os.Getenv(tokenEnvVar); token != "" {
		cmd.Env = []string{tokenEnvVar + "=" + token}
	}

	result, err := p.runner.Run(ctx, cmd)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Timeout("diarization script").WithCause(err)
		}
		// The script writes an error document to the output file before
		// exiting non-zero; prefer that message over raw stderr.
		if msg := readScriptError(outPath); msg != "" {
			return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("%s", msg))
		}
		if result != nil && result.ExitCode != 0 {
			detail := strings.TrimSpace(string(result.Stderr))
			if detail == "" {
				detail = strings.TrimSpace(string(result.Stdout))
			}
			return nil, errors.ExternalServiceError(ProviderName,
				fmt.Errorf("script exited with code %d: %s", result.ExitCode, detail))
		}
		return nil, errors.ExternalServiceError(ProviderName, err)
	}

	doc, err := readScriptDocument(outPath)
	if err != nil {
		return nil, err
	}
	if !doc.Success || doc.Results == nil {
		msg := doc.Error
		if msg == "" {
			msg = "script reported failure without an error message"
		}
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("%s", msg))
	}

	return toResponse(doc.Results), nil
}

// scriptArgs builds the helper-script argument list. The script has no
// exact-count flag; an exact speaker request pins both bounds.
func (p *Provider) scriptArgs(req diarization.Request, outPath string) []string {
	args := []string{p.cfg.ScriptPath, req.AudioPath, "--output", outPath}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	minSpeakers, maxSpeakers := req.MinSpeakers, req.MaxSpeakers
	if req.NumSpeakers > 0 {
		minSpeakers, maxSpeakers = req.NumSpeakers, req.NumSpeakers
	}
	if minSpeakers > 0 {
		args = append(args, "--min-speakers", strconv.Itoa(minSpeakers))
	}
	if maxSpeakers > 0 {
		args = append(args, "--max-speakers", strconv.Itoa(maxSpeakers))
	}
	return args
}

// --- script wire types ---

type scriptDocument struct {
	Success bool           `json:"success"`
	Results *scriptResults `json:"results"`
	Error   string         `json:"error,omitempty"`
}

type scriptResults struct {
	Segments     []scriptSegment `json:"segments"`
	SpeakerCount int             `json:"speaker_count"`
}

type scriptSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

func readScriptDocument(path string) (*scriptDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ExternalServiceError(ProviderName,
			fmt.Errorf("read script result: %w", err))
	}
	var doc scriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.InvalidFormat("script result file", "JSON").WithCause(err)
	}
	return &doc, nil
}

// readScriptError extracts the error message from the result file if the
// script got far enough to write one.
func readScriptError(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	var doc scriptDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Success {
		return ""
	}
	return doc.Error
}

func toResponse(res *scriptResults) *diarization.Response {
	segments := make([]diarization.Segment, len(res.Segments))
	for i, seg := range res.Segments {
		segments[i] = diarization.Segment{
			Speaker: seg.SpeakerID,
			Start:   seg.StartTime,
			End:     seg.EndTime,
		}
	}
	return &diarization.Response{
		Segments:    segments,
		NumSpeakers: res.SpeakerCount,
	}
}
