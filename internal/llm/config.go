package llm

import (
	"fmt"
	"time"
)

// Config contains configuration for the LLM client.
type Config struct {
	// APIKey is the OpenRouter API key
	APIKey string

	// BaseURL is the chat-completions API base URL
	// Default: https://openrouter.ai/api/v1
	BaseURL string

	// DefaultModel is the backend model identifier
	// Example: google/gemini-2.5-flash
	DefaultModel string

	// Timeout is the HTTP request timeout
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of validation attempts (re-prompting on bad output)
	// Default: 3
	MaxRetries int

	// Retry governs re-attempts after transient backend failures
	Retry RetryPolicy
}

// Default values.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModelID = "google/gemini-2.5-flash"
)

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}

	if c.BaseURL == "" {
		return fmt.Errorf("BaseURL is required")
	}

	if c.DefaultModel == "" {
		return fmt.Errorf("DefaultModel is required")
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("Retry.MaxRetries must not be negative")
	}

	if c.Retry.InitialDelay > 0 && c.Retry.MaxDelay > 0 && c.Retry.InitialDelay > c.Retry.MaxDelay {
		return fmt.Errorf("Retry.InitialDelay %s exceeds Retry.MaxDelay %s", c.Retry.InitialDelay, c.Retry.MaxDelay)
	}

	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}

	c.Retry.SetDefaults()
}

// ModelConfig contains configuration for a specific model.
type ModelConfig struct {
	// Name is the OpenRouter model identifier
	Name string

	// ContextWindow is the maximum context size in tokens
	ContextWindow int

	// Description is a human-readable description
	Description string
}

// DefaultModels returns the known model configurations.
func DefaultModels() map[string]ModelConfig {
	return map[string]ModelConfig{
		"google/gemini-2.5-flash": {
			Name:          "google/gemini-2.5-flash",
			ContextWindow: 1000000,
			Description:   "Gemini 2.5 Flash - fast responses",
		},
		"google/gemini-2.5-pro": {
			Name:          "google/gemini-2.5-pro",
			ContextWindow: 1000000,
			Description:   "Gemini 2.5 Pro - advanced reasoning",
		},
		"anthropic/claude-3.5-sonnet": {
			Name:          "anthropic/claude-3.5-sonnet",
			ContextWindow: 200000,
			Description:   "Claude 3.5 Sonnet - balanced performance",
		},
	}
}

// modelLabel returns a display label for a model identifier.
func modelLabel(name string) string {
	if mc, ok := DefaultModels()[name]; ok {
		return mc.Description + " (via OpenRouter)"
	}
	return name + " (via OpenRouter)"
}
