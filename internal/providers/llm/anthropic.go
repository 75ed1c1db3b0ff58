package llm

import (
	"context"
	"strings"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/retry"
)

const (
	anthropicBaseURL          = "https://api.anthropic.com"
	anthropicVersion          = "2023-06-01"
	defaultAnthropicMaxTokens = 4096
)

// Anthropic talks to the messages API. System turns are lifted into the
// top-level system field since the API accepts only user and assistant turns.
type Anthropic struct {
	client jsonClient
	model  string
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return newAnthropic(anthropicBaseURL, apiKey, model, nil)
}

func newAnthropic(baseURL, apiKey, model string, retrier *retry.Retrier) *Anthropic {
	return &Anthropic{
		client: newJSONClient(baseURL, map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": anthropicVersion,
		}, retrier),
		model: model,
	}
}

type anthropicRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	System    string         `json:"system,omitempty"`
	Messages  []core.Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Anthropic) Chat(ctx context.Context, history []core.Message) (core.Message, error) {
	req := anthropicRequest{Model: a.model, MaxTokens: defaultAnthropicMaxTokens}

	var system []string
	for _, m := range history {
		if m.Role == core.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, m)
	}
	req.System = strings.Join(system, "\n\n")

	var resp anthropicResponse
	if err := a.client.post(ctx, "/v1/messages", req, &resp); err != nil {
		return core.Message{}, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return core.Message{Role: core.RoleAssistant, Content: text.String()}, nil
}
