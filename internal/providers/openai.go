package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OpenAICompatClient talks to any OpenAI-compatible chat completions API:
// OpenAI itself, OpenRouter, Perplexity, DeepSeek, xAI. Provider-specific
// request headers (OpenRouter's referer/title) are supplied at construction.
type OpenAICompatClient struct {
	name    string
	apiKey  string
	baseURL string
	headers map[string]string
	client  *http.Client
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// NewOpenAICompatClient creates a client for an OpenAI-compatible endpoint
func NewOpenAICompatClient(name, apiKey, baseURL string, timeoutSec int, extraHeaders map[string]string) *OpenAICompatClient {
	return &OpenAICompatClient{
		name:    name,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: extraHeaders,
		client:  newHTTPClient(timeoutSec),
	}
}

// NewOpenRouterClient creates an OpenRouter client with its referer headers
func NewOpenRouterClient(apiKey, baseURL string, timeoutSec int) *OpenAICompatClient {
	return NewOpenAICompatClient("openrouter", apiKey, baseURL, timeoutSec, map[string]string{
		"HTTP-Referer": "https://payready.ai",
		"X-Title":      "PayReady AI",
	})
}

func (c *OpenAICompatClient) Name() string { return c.name }

// Chat sends a chat completion request and returns the first choice
func (c *OpenAICompatClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s: API key not configured", c.name)
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%s: no messages provided", c.name)
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	for k, v := range c.headers {
		headers[k] = v
	}

	payload := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := postJSON(ctx, c.client, c.name, c.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: response contained no choices", c.name)
	}

	return &ChatResponse{
		Content:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:    resp.Model,
		Provider: c.name,
		Usage:    resp.Usage,
	}, nil
}
