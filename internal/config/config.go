// Package config loads and validates the contextos YAML configuration.
// Durations are written as strings ("30s", "2m") and resolved through
// accessor methods so a malformed value degrades to the default rather
// than failing the whole load.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all contextos configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM engine configuration
	Engine EngineConfig `yaml:"engine"`

	// Signal queue and processing
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Session lifecycle
	Session SessionConfig `yaml:"session"`

	// Tool registration
	Tools ToolsConfig `yaml:"tools"`

	// Signal adapters
	Adapters AdaptersConfig `yaml:"adapters"`

	// User preferences
	User UserConfig `yaml:"user"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// UserConfig carries user preferences that shape prompts.
type UserConfig struct {
	// DefaultLanguage is the language answers are written in.
	DefaultLanguage string `yaml:"default_language"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string          `yaml:"level"` // debug, info, warn, error
	Development bool            `yaml:"development"`
	Disabled    map[string]bool `yaml:"disabled"` // category -> off
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "contextos",
		Version: "0.3.0",

		Engine: EngineConfig{
			Provider:      "openai",
			Model:         "gpt-4o-mini",
			BaseURL:       "https://api.openai.com/v1",
			Timeout:       "60s",
			MaxRetries:    3,
			MaxIterations: 5,
			Temperature:   0.3,
		},

		Pipeline: PipelineConfig{
			QueueSize:      10,
			EnqueueTimeout: "1s",
		},

		Session: SessionConfig{
			ReviewMaxTurns:     -1,
			NotifyDismissDelay: "10s",
			FinalizeDelay:      "3s",
		},

		Tools: ToolsConfig{
			Enabled:        []string{"calculator", "llm_query"},
			TargetLanguage: "English",
		},

		Adapters: AdaptersConfig{
			FileDrop: FileDropConfig{
				Enabled: false,
				Path:    "drop",
			},
		},

		User: UserConfig{
			DefaultLanguage: "English",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.Provider != "openai" && c.Engine.Provider != "gemini" {
		return fmt.Errorf("unknown engine provider %q", c.Engine.Provider)
	}
	if c.Engine.MaxIterations < 1 {
		return fmt.Errorf("engine.max_iterations must be >= 1, got %d", c.Engine.MaxIterations)
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("pipeline.queue_size must be >= 1, got %d", c.Pipeline.QueueSize)
	}
	if c.Session.ReviewMaxTurns < -1 {
		return fmt.Errorf("session.review_max_turns must be >= -1, got %d", c.Session.ReviewMaxTurns)
	}
	return nil
}

// applyEnvOverrides lets deployment env vars win over the file for the
// secrets-shaped fields.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CONTEXTOS_API_KEY"); v != "" {
		c.Engine.APIKey = v
	}
	if v := os.Getenv("CONTEXTOS_BASE_URL"); v != "" {
		c.Engine.BaseURL = v
	}
	if v := os.Getenv("CONTEXTOS_MODEL"); v != "" {
		c.Engine.Model = v
	}
	if v := os.Getenv("CONTEXTOS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// parseDuration resolves a string duration with a fallback default.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
