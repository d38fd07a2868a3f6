package providers

import (
	"context"
	"fmt"
	"strings"
)

// StubClient returns canned responses for offline development. It never
// touches the network and always succeeds.
type StubClient struct {
	provider string
}

// NewStubClient creates a stub standing in for the named provider
func NewStubClient(provider string) *StubClient {
	return &StubClient{provider: provider}
}

func (c *StubClient) Name() string { return c.provider + "-stub" }

// Chat returns a canned response echoing the query and model
func (c *StubClient) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	query := ""
	if len(req.Messages) > 0 {
		query = req.Messages[len(req.Messages)-1].Content
	}
	if len(query) > 100 {
		query = query[:100]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Offline Mode Response from %s\n\n", c.provider)
	fmt.Fprintf(&sb, "Model: %s\n", req.Model)
	fmt.Fprintf(&sb, "Query: %s...\n\n", query)
	sb.WriteString("This is a stub response for local development.\n")
	sb.WriteString("The system is running in offline mode without real API calls.")

	return &ChatResponse{
		Content:  sb.String(),
		Model:    "stub-model",
		Provider: c.Name(),
		Usage:    Usage{PromptTokens: 50, CompletionTokens: 50, TotalTokens: 100},
	}, nil
}
