package config

import "time"

// EngineConfig configures the LLM engine shared by the detector,
// classifier, agent and LLM-backed tools.
type EngineConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	// Timeout bounds a single completion call.
	Timeout string `yaml:"timeout"`

	// MaxRetries is the number of attempts per completion call.
	MaxRetries int `yaml:"max_retries"`

	// MaxIterations bounds the reason-act loop.
	MaxIterations int `yaml:"max_iterations"`

	Temperature float32 `yaml:"temperature"`
}

// RequestTimeout returns the per-call timeout, defaulting to 60s.
func (c EngineConfig) RequestTimeout() time.Duration {
	return parseDuration(c.Timeout, 60*time.Second)
}

// Retries returns the bounded retry count, defaulting to 3.
func (c EngineConfig) Retries() int {
	if c.MaxRetries < 1 {
		return 3
	}
	return c.MaxRetries
}

// Iterations returns the agent loop bound, defaulting to 5.
func (c EngineConfig) Iterations() int {
	if c.MaxIterations < 1 {
		return 5
	}
	return c.MaxIterations
}
