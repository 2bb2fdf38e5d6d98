package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/diarize/logger"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "diarize"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "diarize", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})

	t.Run("service name propagates into logging", func(t *testing.T) {
		cfg := ServiceConfig{Name: "diarize"}
		cfg.ApplyDefaults()
		if cfg.Logging.ServiceName != "diarize" {
			t.Errorf("expected logging service name 'diarize', got %q", cfg.Logging.ServiceName)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "diarize", Environment: "development", Logging: validLogging()}, false, ""},
		{"valid production", ServiceConfig{Name: "diarize", Environment: "production", Logging: validLogging()}, false, ""},
		{"missing name", ServiceConfig{Environment: "production", Logging: validLogging()}, true, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "diarize", Environment: "qa", Logging: validLogging()}, true, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func validLogging() logger.Config {
	return logger.Config{Level: "info", Format: "json", Output: "stderr"}
}

func TestPyannoteConfigApplyDefaults(t *testing.T) {
	cfg := PyannoteConfig{}
	cfg.ApplyDefaults()
	if cfg.BaseURL != "http://localhost:8388" {
		t.Errorf("unexpected default base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout != 300*time.Second {
		t.Errorf("unexpected default timeout %v", cfg.Timeout)
	}
}

func TestScriptConfigApplyDefaults(t *testing.T) {
	cfg := ScriptConfig{}
	cfg.ApplyDefaults()
	if cfg.Python != "python3" {
		t.Errorf("unexpected default python %q", cfg.Python)
	}
}

func TestHistoryConfigValidate(t *testing.T) {
	cfg := HistoryConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when history enabled without a path")
	}
	cfg.Path = "runs.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestObservabilityEnabled(t *testing.T) {
	cfg := ObservabilityConfig{}
	if cfg.Enabled() {
		t.Error("expected telemetry disabled without an endpoint")
	}
	cfg.Endpoint = "localhost:4318"
	if !cfg.Enabled() {
		t.Error("expected telemetry enabled with an endpoint")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	content := `
name: diarize
environment: production
pyannote:
  base_url: http://pyannote.internal:9000
history:
  enabled: true
  path: /tmp/runs.db
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected production, got %q", cfg.Environment)
	}
	if cfg.Pyannote.BaseURL != "http://pyannote.internal:9000" {
		t.Errorf("unexpected pyannote base URL %q", cfg.Pyannote.BaseURL)
	}
	if !cfg.History.Enabled || cfg.History.Path != "/tmp/runs.db" {
		t.Errorf("unexpected history config: %+v", cfg.History)
	}
	// Defaults still fill unset sections.
	if cfg.Script.Python != "python3" {
		t.Errorf("expected script defaults applied, got %q", cfg.Script.Python)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "absent.yml")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "diarize" {
		t.Errorf("expected default name, got %q", cfg.Name)
	}
	if cfg.Pyannote.Timeout != 300*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Pyannote.Timeout)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("PYANNOTE_BASE_URL")
	want := map[string]bool{
		"pyannote_base_url": true,
		"pyannote.base.url": true,
		"pyannote.base_url": true,
	}
	for v := range want {
		found := false
		for _, got := range variants {
			if got == v {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected variant %q in %v", v, variants)
		}
	}
}
