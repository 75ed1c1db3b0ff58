package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/log"
)

const (
	openAIBaseURL     = "https://api.openai.com"
	openRouterBaseURL = "https://openrouter.ai/api"
)

// NewProvider creates the AIProvider named by cfg.GetProvider().
func NewProvider(ctx context.Context, cfg core.ProviderConfig) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.GetProvider()).
		Str("model", cfg.GetModel()).
		Msg("starting llm provider")

	compat := OpenAICompatibleConfig{Model: cfg.GetModel()}

	switch cfg.GetProvider() {
	case "anthropic":
		return NewAnthropic(cfg.GetAnthropicAPIKey(), cfg.GetModel()), nil
	case "openai":
		compat.BaseURL = openAIBaseURL
		compat.APIKey = cfg.GetOpenAIAPIKey()
	case "openrouter":
		compat.BaseURL = openRouterBaseURL
		compat.APIKey = cfg.GetOpenRouterAPIKey()
		compat.ExtraHeaders = map[string]string{
			"HTTP-Referer": core.AppRepositoryURL,
			"X-Title":      core.AppName,
		}
	case "ollama":
		compat.BaseURL = cfg.GetOllamaBaseURL()
		compat.APIKey = cfg.GetOllamaAPIKey()
	case "custom":
		if cfg.GetCustomOpenAIBaseURL() == "" {
			return nil, fmt.Errorf("custom provider requires CUSTOM_OPENAI_BASE_URL")
		}
		compat.BaseURL = cfg.GetCustomOpenAIBaseURL()
		compat.APIKey = cfg.GetCustomOpenAIAPIKey()
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.GetProvider())
	}
	return NewOpenAICompatible(compat), nil
}
