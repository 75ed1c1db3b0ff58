package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/letterdesk/internal/config"
	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *retry.Config {
	return &retry.Config{
		MaxRetries:    2,
		BackoffFactor: 2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
	}
}

func TestOpenAICompatible_Chat(t *testing.T) {
	var gotBody map[string]any
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Dear Ms. Smith,"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:      srv.URL + "/",
		APIKey:       "secret",
		Model:        "test-model",
		ExtraHeaders: map[string]string{"X-Title": core.AppName},
	})

	msg, err := p.Chat(context.Background(), []core.Message{
		{Role: core.RoleSystem, Content: "You write letters."},
		{Role: core.RoleUser, Content: "Start a letter"},
	})
	require.NoError(t, err)
	assert.Equal(t, core.RoleAssistant, msg.Role)
	assert.Equal(t, "Dear Ms. Smith,", msg.Content)

	assert.Equal(t, "test-model", gotBody["model"])
	assert.Len(t, gotBody["messages"], 2)
	assert.Equal(t, "Bearer secret", gotHeaders.Get("Authorization"))
	assert.Equal(t, core.AppName, gotHeaders.Get("X-Title"))
	assert.Equal(t, core.AppUserAgent, gotHeaders.Get("User-Agent"))
}

func TestOpenAICompatible_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantAPI   string
		wantCalls int32
	}{
		{"rate_limited_is_retried", http.StatusTooManyRequests, `{"error":"slow down"}`, "slow down", 3},
		{"bad_gateway_is_retried", http.StatusBadGateway, "upstream down\n", "upstream down", 3},
		{"unauthorized_fails_fast", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"auth"}}`, "bad key", 1},
		{"empty_choices", http.StatusOK, `{"choices":[]}`, "", 1},
		{"garbage", http.StatusOK, `not json`, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				assert.Empty(t, r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOpenAICompatible(OpenAICompatibleConfig{BaseURL: srv.URL, Model: "m", Retry: fastRetry()})
			_, err := p.Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}})
			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls.Load())

			var apiErr *APIError
			if tt.wantAPI == "" {
				assert.False(t, errors.As(err, &apiErr))
				return
			}
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantAPI, apiErr.Message)
		})
	}
}

func TestOpenAICompatible_RecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Dear team,"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(OpenAICompatibleConfig{BaseURL: srv.URL, Model: "m", Retry: fastRetry()})
	msg, err := p.Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Dear team,", msg.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAICompatible_DefaultsRole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(OpenAICompatibleConfig{BaseURL: srv.URL, Model: "m"})
	msg, err := p.Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, core.Message{Role: core.RoleAssistant, Content: "ok"}, msg)
}

func TestOpenAICompatible_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := NewOpenAICompatible(OpenAICompatibleConfig{BaseURL: srv.URL, Model: "llama3"})
	_, err := p.Chat(ctx, []core.Message{{Role: core.RoleUser, Content: "hi"}})
	assert.Error(t, err)
}

func TestAnthropic_Chat(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}]}`))
	}))
	defer srv.Close()

	a := newAnthropic(srv.URL, "key", "claude-test", retry.NewRetrier(fastRetry()))

	msg, err := a.Chat(context.Background(), []core.Message{
		{Role: core.RoleSystem, Content: "one"},
		{Role: core.RoleSystem, Content: "two"},
		{Role: core.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", msg.Content)
	assert.Equal(t, "one\n\ntwo", gotBody["system"])
	assert.Len(t, gotBody["messages"], 1)
	assert.EqualValues(t, defaultAnthropicMaxTokens, gotBody["max_tokens"])
}

func TestAnthropic_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	}))
	defer srv.Close()

	_, err := newAnthropic(srv.URL, "key", "m", retry.NewRetrier(fastRetry())).Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "max_tokens too large", apiErr.Message)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.AppConfig
		wantURL  string
		wantAuth string
		wantErr  bool
	}{
		{name: "openai", cfg: config.AppConfig{Provider: "openai", OpenAIAPIKey: "k"}, wantURL: openAIBaseURL, wantAuth: "Bearer k"},
		{name: "openrouter", cfg: config.AppConfig{Provider: "openrouter", OpenRouterAPIKey: "r"}, wantURL: openRouterBaseURL, wantAuth: "Bearer r"},
		{name: "ollama", cfg: config.AppConfig{Provider: "ollama", OllamaBaseURL: "http://localhost:11434/"}, wantURL: "http://localhost:11434"},
		{name: "custom", cfg: config.AppConfig{Provider: "custom", CustomOpenAIBaseURL: "http://localhost:8080"}, wantURL: "http://localhost:8080"},
		{name: "custom_without_url", cfg: config.AppConfig{Provider: "custom"}, wantErr: true},
		{name: "unknown", cfg: config.AppConfig{Provider: "nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			compat, ok := p.(*OpenAICompatible)
			require.True(t, ok, "got %T", p)
			assert.Equal(t, tt.wantURL, compat.client.baseURL)
			assert.Equal(t, tt.wantAuth, compat.client.headers["Authorization"])
		})
	}

	p, err := NewProvider(context.Background(), config.AppConfig{Provider: "anthropic", AnthropicAPIKey: "a"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, p)
}
