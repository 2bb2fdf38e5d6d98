package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/diarize/errors"
)

func TestValidateStruct(t *testing.T) {
	type opts struct {
		Output      string `json:"output" validate:"required"`
		MinSpeakers int    `json:"min_speakers" validate:"min=0"`
	}

	t.Run("valid", func(t *testing.T) {
		if err := Validate(opts{Output: "out.json"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing required", func(t *testing.T) {
		err := Validate(opts{})
		if err == nil {
			t.Fatal("expected error")
		}
		appErr, ok := errors.AsAppError(err)
		if !ok {
			t.Fatalf("expected AppError, got %T", err)
		}
		if appErr.Code != errors.ErrCodeInvalidInput {
			t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
		}
		if !strings.Contains(appErr.Message, "output") {
			t.Errorf("expected field name in message, got %q", appErr.Message)
		}
	})

	t.Run("negative count", func(t *testing.T) {
		if err := Validate(opts{Output: "out.json", MinSpeakers: -1}); err == nil {
			t.Fatal("expected error for negative min_speakers")
		}
	})
}

func TestValidatorFluent(t *testing.T) {
	v := New().
		Required("output", "").
		Min("min_speakers", -2, 0).
		OneOf("backend", "grpc", []string{"pyannote", "script"})

	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected validation errors")
	}
	if len(v.Errors()) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(v.Errors()), v.Errors())
	}
}

func TestValidatorPasses(t *testing.T) {
	v := New().
		Required("output", "out.json").
		Min("min_speakers", 2, 0).
		OneOf("backend", "pyannote", []string{"pyannote", "script"})

	if err := v.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := New().FileExists("audio_path", path).Validate(); err != nil {
		t.Fatalf("unexpected error for existing file: %v", err)
	}
	if err := New().FileExists("audio_path", filepath.Join(dir, "missing.wav")).Validate(); err == nil {
		t.Fatal("expected error for missing file")
	}
	if err := New().FileExists("audio_path", dir).Validate(); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestCustom(t *testing.T) {
	minSpeakers, maxSpeakers := 4, 2
	err := New().
		Custom(maxSpeakers == 0 || maxSpeakers >= minSpeakers, "max_speakers", "must be >= min_speakers").
		Validate()
	if err == nil {
		t.Fatal("expected cross-field error")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"MinSpeakers": "min_speakers",
		"Output":      "output",
		"BaseURL":     "base_u_r_l",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
