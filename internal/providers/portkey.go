package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// PortkeyClient talks to the Portkey gateway. Authentication uses the
// x-portkey-api-key header; an optional virtual key selects the upstream
// provider credential configured in the Portkey dashboard.
type PortkeyClient struct {
	apiKey     string
	virtualKey string
	baseURL    string
	client     *http.Client
}

type portkeyRequest struct {
	Model      string    `json:"model"`
	Messages   []Message `json:"messages"`
	MaxTokens  int       `json:"max_tokens,omitempty"`
	VirtualKey string    `json:"virtual_key,omitempty"`
}

// NewPortkeyClient creates a Portkey gateway client
func NewPortkeyClient(apiKey, virtualKey, baseURL string, timeoutSec int) *PortkeyClient {
	return &PortkeyClient{
		apiKey:     apiKey,
		virtualKey: virtualKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     newHTTPClient(timeoutSec),
	}
}

func (c *PortkeyClient) Name() string { return "portkey" }

// Chat sends a chat completion through the Portkey gateway
func (c *PortkeyClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("portkey: PORTKEY_API_KEY not configured")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("portkey: no messages provided")
	}

	headers := map[string]string{"x-portkey-api-key": c.apiKey}

	payload := portkeyRequest{
		Model:      req.Model,
		Messages:   req.Messages,
		MaxTokens:  req.MaxTokens,
		VirtualKey: c.virtualKey,
	}

	body, err := postJSON(ctx, c.client, "portkey", c.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("portkey: failed to decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("portkey: response contained no choices")
	}

	return &ChatResponse{
		Content:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:    resp.Model,
		Provider: "portkey",
		Usage:    resp.Usage,
	}, nil
}
