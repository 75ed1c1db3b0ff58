package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/pkg/log"
	"github.com/sandevgo/letterdesk/pkg/retry"
)

// requestTimeout bounds a single completion call; callers may set tighter
// deadlines through ctx.
const requestTimeout = 120 * time.Second

// APIError is a non-2xx answer from a provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api: http %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed if sent again.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type jsonClient struct {
	http    *http.Client
	retrier *retry.Retrier
	baseURL string
	headers map[string]string
}

func newJSONClient(baseURL string, headers map[string]string, retrier *retry.Retrier) jsonClient {
	if retrier == nil {
		retrier = retry.NewDefaultRetrier()
	}
	return jsonClient{
		http:    &http.Client{Timeout: requestTimeout},
		retrier: retrier,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
	}
}

// post sends in as JSON to path and decodes a 2xx body into out. Transport
// errors, 429 and 5xx answers are retried; anything else fails at once.
func (c jsonClient) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	logger := log.FromCtx(ctx)
	return c.retrier.Do(ctx, func() error {
		return c.send(ctx, path, data, out)
	}, func(attempt int, err error) {
		logger.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("llm request failed, retrying")
	})
}

func (c jsonClient) send(ctx context.Context, path string, data []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", core.AppUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(fmt.Errorf("request: %w", err))
		}
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
		if apiErr.Temporary() {
			return apiErr
		}
		return retry.Permanent(apiErr)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(fmt.Errorf("decode: %w", err))
	}
	return nil
}

// errorMessage pulls the message out of {"error": "..."} or
// {"error": {"message": "..."}} bodies and falls back to the raw text.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return strings.TrimSpace(string(body))
}
