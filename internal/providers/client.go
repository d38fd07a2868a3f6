// Package providers implements chat-completion clients for the hosted LLM
// providers the CLI routes to, plus a stub client for offline mode.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

const (
	maxRetries   = 3
	initialDelay = 1 * time.Second
)

// Message is a single chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-agnostic chat completion request
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting from the provider
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the normalized result of a chat completion
type ChatResponse struct {
	Content  string
	Model    string
	Provider string
	Usage    Usage
}

// Client is a chat-completion provider
type Client interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// APIError is a non-2xx response from a provider
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// retryable reports whether a request should be retried: rate limits and
// server errors, never other client errors.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// postJSON sends a JSON POST with retry and exponential backoff.
// Transport failures and retryable statuses back off 1s, 2s, 4s.
func postJSON(ctx context.Context, hc *http.Client, provider, url string, headers map[string]string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := hc.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{
				Provider:   provider,
				StatusCode: resp.StatusCode,
				Message:    decodeErrorMessage(respBody),
			}
			if retryable(resp.StatusCode) {
				lastErr = apiErr
				continue
			}
			return nil, apiErr
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// decodeErrorMessage extracts a human-readable message from the common
// {"error": {"message": ...}} envelope, falling back to the raw body.
func decodeErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}

func newHTTPClient(timeoutSec int) *http.Client {
	if timeoutSec <= 0 {
		timeoutSec = 120
	}
	return &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}
}
