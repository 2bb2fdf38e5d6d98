package config

import (
	"fmt"
	"time"

	"github.com/kbukum/diarize/logger"
)

// ServiceConfig contains the essential configuration fields the CLI needs.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig returns the base ServiceConfig.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "diarize"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	// Propagate service name into logging so Init() uses the right tag.
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// PyannoteConfig configures the pyannote HTTP sidecar backend.
type PyannoteConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults applies default values to the pyannote backend configuration.
func (c *PyannoteConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8388"
	}
	if c.Timeout == 0 {
		c.Timeout = 300 * time.Second
	}
}

// ScriptConfig configures the subprocess backend that runs the pyannote
// helper script directly.
type ScriptConfig struct {
	Python     string        `yaml:"python" mapstructure:"python"`
	ScriptPath string        `yaml:"script_path" mapstructure:"script_path"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults applies default values to the script backend configuration.
func (c *ScriptConfig) ApplyDefaults() {
	if c.Python == "" {
		c.Python = "python3"
	}
	if c.Timeout == 0 {
		c.Timeout = 600 * time.Second
	}
}

// HistoryConfig configures the optional SQLite run-history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	if c.Enabled && c.Path == "" {
		return fmt.Errorf("config.history.path is required when history is enabled")
	}
	return nil
}

// ObservabilityConfig configures optional OpenTelemetry export.
// Export is disabled when Endpoint is empty.
type ObservabilityConfig struct {
	Endpoint        string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure        bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate      float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	MetricsInterval time.Duration `yaml:"metrics_interval" mapstructure:"metrics_interval"`
}

// Enabled reports whether telemetry export is configured.
func (c *ObservabilityConfig) Enabled() bool { return c.Endpoint != "" }

// ApplyDefaults applies default values to the observability configuration.
func (c *ObservabilityConfig) ApplyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricsInterval == 0 {
		c.MetricsInterval = 15 * time.Second
	}
}

// Config is the full diarize CLI configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Pyannote      PyannoteConfig      `yaml:"pyannote" mapstructure:"pyannote"`
	Script        ScriptConfig        `yaml:"script" mapstructure:"script"`
	History       HistoryConfig       `yaml:"history" mapstructure:"history"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Pyannote.ApplyDefaults()
	c.Script.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	return nil
}

// Load loads the diarize configuration, applies defaults, and validates it.
func Load(opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig("diarize", cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
