// Package pyannote implements the diarization provider backed by a local
// HTTP sidecar that hosts a pretrained pyannote speaker-diarization
// pipeline. The sidecar keeps the model warm between runs so the CLI
// does not pay model-load time on every invocation.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/diarize/diarization"
	"github.com/kbukum/diarize/errors"
	"github.com/kbukum/diarize/provider"
)

const (
	// ProviderName is the registered name for the pyannote backend.
	ProviderName = "pyannote"

	defaultBaseURL = "http://localhost:8388"
	defaultTimeout = 300 * time.Second
)

// Config holds configuration for the pyannote sidecar backend.
type Config struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// Provider implements diarization.Provider using the pyannote HTTP sidecar.
type Provider struct {
	cfg    Config
	client *http.Client
}

// NewProvider creates a new pyannote diarization provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Provider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Factory returns a provider.Factory that creates pyannote providers
// from a generic config map.
func Factory() provider.Factory[diarization.Provider] {
	return func(cfg map[string]any) (diarization.Provider, error) {
		pc := Config{}
		if v, ok := cfg["base_url"].(string); ok {
			pc.BaseURL = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			pc.Timeout = v
		}
		return NewProvider(pc), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the pyannote sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Diarize uploads the audio file to the sidecar and returns speaker segments.
func (p *Provider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	audioData, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, errors.NotFound("audio file", req.AudioPath).WithCause(err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, errors.Internal(fmt.Errorf("write audio data: %w", err))
	}

	if req.Model != "" {
		_ = writer.WriteField("model", req.Model)
	}
	if req.NumSpeakers > 0 {
		_ = writer.WriteField("num_speakers", fmt.Sprintf("%d", req.NumSpeakers))
	}
	if req.MinSpeakers > 0 {
		_ = writer.WriteField("min_speakers", fmt.Sprintf("%d", req.MinSpeakers))
	}
	if req.MaxSpeakers > 0 {
		_ = writer.WriteField("max_speakers", fmt.Sprintf("%d", req.MaxSpeakers))
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/diarize", &buf)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Timeout("diarization request").WithCause(err)
		}
		return nil, errors.ConnectionFailed("pyannote sidecar").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.ExternalServiceError(ProviderName,
			fmt.Errorf("diarization failed (status %d): %s", resp.StatusCode, string(body)))
	}

	var result sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.InvalidFormat("sidecar response", "JSON").WithCause(err)
	}

	if result.Error != "" {
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("%s", result.Error))
	}

	return toResponse(&result), nil
}

// --- sidecar wire types ---

type sidecarResponse struct {
	Segments    []sidecarSegment `json:"segments"`
	NumSpeakers int              `json:"num_speakers"`
	Error       string           `json:"error,omitempty"`
}

type sidecarSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

func toResponse(resp *sidecarResponse) *diarization.Response {
	segments := make([]diarization.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = diarization.Segment{
			Speaker: seg.SpeakerID,
			Start:   seg.StartTime,
			End:     seg.EndTime,
		}
	}
	return &diarization.Response{
		Segments:    segments,
		NumSpeakers: resp.NumSpeakers,
	}
}
