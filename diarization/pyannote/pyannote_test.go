package pyannote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/diarize/diarization"
	"github.com/kbukum/diarize/errors"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewProviderDefaults(t *testing.T) {
	p := NewProvider(Config{})
	if p.cfg.BaseURL != defaultBaseURL {
		t.Errorf("expected default base URL %s, got %s", defaultBaseURL, p.cfg.BaseURL)
	}
	if p.cfg.Timeout != defaultTimeout {
		t.Errorf("expected default timeout %v, got %v", defaultTimeout, p.cfg.Timeout)
	}
	if p.Name() != ProviderName {
		t.Errorf("expected name %q, got %q", ProviderName, p.Name())
	}
}

func TestIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProvider(Config{BaseURL: server.URL})
	if !p.IsAvailable(context.Background()) {
		t.Error("expected provider to be available")
	}

	server.Close()
	if p.IsAvailable(context.Background()) {
		t.Error("expected provider to be unavailable after server close")
	}
}

func TestDiarize(t *testing.T) {
	audioPath := writeTempAudio(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "pyannote/speaker-diarization-3.1" {
			t.Errorf("unexpected model field %q", got)
		}
		if got := r.FormValue("min_speakers"); got != "2" {
			t.Errorf("unexpected min_speakers %q", got)
		}
		if got := r.FormValue("max_speakers"); got != "4" {
			t.Errorf("unexpected max_speakers %q", got)
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("missing audio part: %v", err)
		}

		_ = json.NewEncoder(w).Encode(sidecarResponse{
			Segments: []sidecarSegment{
				{SpeakerID: "SPEAKER_00", StartTime: 0.0, EndTime: 2.5},
				{SpeakerID: "SPEAKER_01", StartTime: 2.5, EndTime: 5.0},
			},
			NumSpeakers: 2,
		})
	}))
	defer server.Close()

	p := NewProvider(Config{BaseURL: server.URL})
	resp, err := p.Diarize(context.Background(), diarization.Request{
		AudioPath:   audioPath,
		Model:       "pyannote/speaker-diarization-3.1",
		MinSpeakers: 2,
		MaxSpeakers: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NumSpeakers != 2 {
		t.Errorf("expected 2 speakers, got %d", resp.NumSpeakers)
	}
	if len(resp.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(resp.Segments))
	}
	if resp.Segments[0].Speaker != "SPEAKER_00" || resp.Segments[0].End != 2.5 {
		t.Errorf("unexpected first segment %+v", resp.Segments[0])
	}
}

func TestDiarizeMissingAudio(t *testing.T) {
	p := NewProvider(Config{})
	_, err := p.Diarize(context.Background(), diarization.Request{AudioPath: "/nonexistent.wav"})
	if err == nil {
		t.Fatal("expected error for missing audio file")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestDiarizeServerError(t *testing.T) {
	audioPath := writeTempAudio(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model load failed", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewProvider(Config{BaseURL: server.URL})
	_, err := p.Diarize(context.Background(), diarization.Request{AudioPath: audioPath})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeExternalService {
		t.Errorf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
}

func TestDiarizeErrorPayload(t *testing.T) {
	audioPath := writeTempAudio(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sidecarResponse{Error: "no speech detected"})
	}))
	defer server.Close()

	p := NewProvider(Config{BaseURL: server.URL})
	_, err := p.Diarize(context.Background(), diarization.Request{AudioPath: audioPath})
	if err == nil {
		t.Fatal("expected error from error payload")
	}
}

func TestFactory(t *testing.T) {
	factory := Factory()
	p, err := factory(map[string]any{"base_url": "http://example.test:9000"})
	if err != nil {
		t.Fatalf("unexpected factory error: %v", err)
	}
	if p.Name() != ProviderName {
		t.Errorf("expected %q, got %q", ProviderName, p.Name())
	}
}
