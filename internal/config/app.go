package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/letterdesk/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"LETTERDESK_RUNTIME_PATH" envDefault:".letterdesk"`

	// LLM provider selection
	Provider            string `env:"LLM_PROVIDER" envDefault:"openrouter"`
	Model               string `env:"LLM_MODEL" envDefault:"google/gemma-3-27b-it:free"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY" secret:"true"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY" secret:"true"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY" secret:"true"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY" secret:"true"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY" secret:"true"`

	// Sessions
	MemoryWindowSize       int `env:"MEMORY_WINDOW_SIZE" envDefault:"10"`
	SessionTimeoutMinutes  int `env:"SESSION_TIMEOUT_MINUTES" envDefault:"30"`
	CleanupIntervalMinutes int `env:"CLEANUP_INTERVAL_MINUTES" envDefault:"5"`

	// Instruction memory
	ExtractionTimeoutSeconds int `env:"EXTRACTION_TIMEOUT_SECONDS" envDefault:"15"`
	MaxInstructionsPerQuery  int `env:"MAX_INSTRUCTIONS_PER_QUERY" envDefault:"10"`
	ExtractionWorkers        int `env:"EXTRACTION_WORKERS" envDefault:"2"`
	ExtractionQueueSize      int `env:"EXTRACTION_QUEUE_SIZE" envDefault:"64"`
}

// Parse reads the config from the environment and validates it.
func Parse() (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseFrom builds the config from environ alone, ignoring the process
// environment.
func ParseFrom(environ map[string]string) (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.ParseWithOptions(c, env.Options{Environment: environ}); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c, err := Parse()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"MEMORY_WINDOW_SIZE", c.MemoryWindowSize},
		{"SESSION_TIMEOUT_MINUTES", c.SessionTimeoutMinutes},
		{"CLEANUP_INTERVAL_MINUTES", c.CleanupIntervalMinutes},
		{"EXTRACTION_TIMEOUT_SECONDS", c.ExtractionTimeoutSeconds},
		{"MAX_INSTRUCTIONS_PER_QUERY", c.MaxInstructionsPerQuery},
		{"EXTRACTION_WORKERS", c.ExtractionWorkers},
		{"EXTRACTION_QUEUE_SIZE", c.ExtractionQueueSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	return nil
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "letterdesk.db")
}

func (c AppConfig) GetEnvPath() string {
	return filepath.Join(c.RuntimePath, ".env")
}

func (c AppConfig) GetAskPromptPath() string {
	return filepath.Join(c.RuntimePath, "prompts", "ask.md")
}

func (c AppConfig) GetEditPromptPath() string {
	return filepath.Join(c.RuntimePath, "prompts", "edit.md")
}

func (c AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

func (c AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

func (c AppConfig) ExtractionTimeout() time.Duration {
	return time.Duration(c.ExtractionTimeoutSeconds) * time.Second
}

func (c AppConfig) GetProvider() string            { return c.Provider }
func (c AppConfig) GetModel() string               { return c.Model }
func (c AppConfig) GetOpenAIAPIKey() string        { return c.OpenAIAPIKey }
func (c AppConfig) GetAnthropicAPIKey() string     { return c.AnthropicAPIKey }
func (c AppConfig) GetOpenRouterAPIKey() string    { return c.OpenRouterAPIKey }
func (c AppConfig) GetOllamaAPIKey() string        { return c.OllamaAPIKey }
func (c AppConfig) GetOllamaBaseURL() string       { return c.OllamaBaseURL }
func (c AppConfig) GetCustomOpenAIBaseURL() string { return c.CustomOpenAIBaseURL }
func (c AppConfig) GetCustomOpenAIAPIKey() string  { return c.CustomOpenAIAPIKey }
