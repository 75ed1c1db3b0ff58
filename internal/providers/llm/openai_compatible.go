package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/retry"
)

const chatCompletionsPath = "/v1/chat/completions"

// OpenAICompatible speaks the chat completions API shared by OpenAI,
// OpenRouter, Ollama and most self-hosted servers.
type OpenAICompatible struct {
	client jsonClient
	model  string
}

type OpenAICompatibleConfig struct {
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey       string
	Model        string
	ExtraHeaders map[string]string
	// Retry defaults to retry.NewDefaultConfig().
	Retry *retry.Config
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	headers := make(map[string]string, len(cfg.ExtraHeaders)+1)
	for k, v := range cfg.ExtraHeaders {
		headers[k] = v
	}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.NewDefaultConfig()
	}
	return &OpenAICompatible{
		client: newJSONClient(cfg.BaseURL, headers, retry.NewRetrier(retryCfg)),
		model:  cfg.Model,
	}
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []core.Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message      core.Message `json:"message"`
		FinishReason string       `json:"finish_reason"`
	} `json:"choices"`
}

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message) (core.Message, error) {
	var resp chatResponse
	if err := o.client.post(ctx, chatCompletionsPath, chatRequest{Model: o.model, Messages: history}, &resp); err != nil {
		return core.Message{}, err
	}
	if len(resp.Choices) == 0 {
		return core.Message{}, fmt.Errorf("empty choices from %s", o.model)
	}

	msg := resp.Choices[0].Message
	if msg.Role == "" {
		msg.Role = core.RoleAssistant
	}
	return msg, nil
}
