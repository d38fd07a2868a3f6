package providers

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ai-cherry/payready-ai/internal/config"
)

// failingClient always errors, for exercising the fallback chain
type failingClient struct{ name string }

func (f *failingClient) Name() string { return f.name }
func (f *failingClient) Chat(context.Context, ChatRequest) (*ChatResponse, error) {
	return nil, fmt.Errorf("%s: unreachable", f.name)
}

// captureClient records the request it receives
type captureClient struct {
	name string
	last ChatRequest
}

func (c *captureClient) Name() string { return c.name }
func (c *captureClient) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	c.last = req
	return &ChatResponse{Provider: c.name, Model: req.Model, Content: "ok"}, nil
}

func TestOfflineRegistryUsesStubs(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Providers.Offline = true
	reg := NewRegistry(cfg, zerolog.Nop())

	for _, routeName := range []string{"claude", "codex", "web", "agent"} {
		resp, err := reg.Chat(context.Background(), routeName, "", []Message{{Role: "user", Content: "ping"}})
		if err != nil {
			t.Fatalf("Route %s failed offline: %v", routeName, err)
		}
		if resp.Model != "stub-model" {
			t.Errorf("Route %s: expected stub-model, got %s", routeName, resp.Model)
		}
	}
}

func TestRegistryUnknownRoute(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Providers.Offline = true
	reg := NewRegistry(cfg, zerolog.Nop())

	if _, err := reg.Chat(context.Background(), "nonsense", "", []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Error("Expected error for unknown route")
	}
	if _, _, err := reg.Resolve("nonsense"); err == nil {
		t.Error("Expected resolve error for unknown route")
	}
}

func TestChatCarriesGenerationSettings(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Providers.Offline = true
	cfg.Providers.Temperature = 0.4
	cfg.Providers.MaxTokens = 2048
	reg := NewRegistry(cfg, zerolog.Nop())

	capture := &captureClient{name: "anthropic"}
	reg.routes["claude"] = route{clients: []Client{capture}, models: []string{"claude-sonnet-4-20250514"}}

	if _, err := reg.Chat(context.Background(), "claude", "", []Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatal(err)
	}
	if capture.last.Temperature != 0.4 {
		t.Errorf("Expected temperature 0.4, got %v", capture.last.Temperature)
	}
	if capture.last.MaxTokens != 2048 {
		t.Errorf("Expected max tokens 2048, got %d", capture.last.MaxTokens)
	}
}

func TestFallbackChain(t *testing.T) {
	t.Parallel()

	reg := &Registry{
		routes: map[string]route{
			"claude": {
				clients: []Client{&failingClient{"anthropic"}, NewStubClient("openrouter")},
				models:  []string{"claude-sonnet-4-20250514", "openai/gpt-4o"},
			},
		},
		log: zerolog.Nop(),
	}

	resp, err := reg.Chat(context.Background(), "claude", "", []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Expected fallback to succeed: %v", err)
	}
	if resp.Provider != "openrouter-stub" {
		t.Errorf("Expected response via fallback stub, got %s", resp.Provider)
	}
}

func TestFallbackExhausted(t *testing.T) {
	t.Parallel()

	reg := &Registry{
		routes: map[string]route{
			"web": {
				clients: []Client{&failingClient{"perplexity"}, &failingClient{"openrouter"}},
				models:  []string{"sonar-pro", "openai/gpt-4o"},
			},
		},
		log: zerolog.Nop(),
	}

	if _, err := reg.Chat(context.Background(), "web", "", []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Error("Expected error when every provider fails")
	}
}
