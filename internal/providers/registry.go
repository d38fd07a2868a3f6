package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ai-cherry/payready-ai/internal/config"
)

// route binds a named intent to a provider chain and the model each link uses
type route struct {
	clients []Client
	models  []string
}

// Registry resolves intent routes to provider clients and runs each request
// through the route's fallback chain.
type Registry struct {
	routes      map[string]route
	offline     bool
	temperature float64
	maxTokens   int
	log         zerolog.Logger
}

// NewRegistry builds provider clients from config and environment keys.
// A missing key degrades that provider to a stub rather than failing.
func NewRegistry(cfg *config.Config, log zerolog.Logger) *Registry {
	offline := cfg.Providers.Offline

	build := func(name string, ctor func() Client) Client {
		if offline {
			return NewStubClient(name)
		}
		c := ctor()
		if c == nil {
			log.Debug().Str("provider", name).Msg("provider key missing, using stub")
			return NewStubClient(name)
		}
		return c
	}

	openrouter := build("openrouter", func() Client {
		key := os.Getenv("OPENROUTER_API_KEY")
		if key == "" {
			return nil
		}
		return NewOpenRouterClient(key, cfg.Providers.OpenRouter.BaseURL, cfg.Providers.OpenRouter.TimeoutSec)
	})
	anthropic := build("anthropic", func() Client {
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil
		}
		return NewAnthropicClient(key, cfg.Providers.Anthropic.BaseURL, cfg.Providers.Anthropic.TimeoutSec)
	})
	openai := build("openai", func() Client {
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil
		}
		return NewOpenAICompatClient("openai", key, cfg.Providers.OpenAI.BaseURL, cfg.Providers.OpenAI.TimeoutSec, nil)
	})
	perplexity := build("perplexity", func() Client {
		key := os.Getenv("PERPLEXITY_API_KEY")
		if key == "" {
			return nil
		}
		return NewOpenAICompatClient("perplexity", key, cfg.Providers.Perplexity.BaseURL, cfg.Providers.Perplexity.TimeoutSec, nil)
	})
	portkey := build("portkey", func() Client {
		key := os.Getenv("PORTKEY_API_KEY")
		if key == "" {
			return nil
		}
		return NewPortkeyClient(key, cfg.Providers.Portkey.VirtualKey, cfg.Providers.Portkey.BaseURL, cfg.Providers.Portkey.TimeoutSec)
	})

	p := cfg.Providers
	routes := map[string]route{
		// claude: deep analysis and refactoring work
		"claude": {
			clients: []Client{anthropic, portkey, openrouter},
			models:  []string{p.Anthropic.Model, p.Portkey.Model, p.OpenRouter.Model},
		},
		// codex: code generation
		"codex": {
			clients: []Client{openai, openrouter},
			models:  []string{p.OpenAI.Model, p.OpenRouter.Model},
		},
		// web: current-information search
		"web": {
			clients: []Client{perplexity, openrouter},
			models:  []string{p.Perplexity.Model, p.OpenRouter.Model},
		},
		// agent: automation and workflow orchestration
		"agent": {
			clients: []Client{openrouter, anthropic},
			models:  []string{p.OpenRouter.Model, p.Anthropic.Model},
		},
	}

	return &Registry{
		routes:      routes,
		offline:     offline,
		temperature: p.Temperature,
		maxTokens:   p.MaxTokens,
		log:         log,
	}
}

// Routes returns the known route names
func (r *Registry) Routes() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	return names
}

// Resolve returns the primary client and model for a route
func (r *Registry) Resolve(routeName string) (Client, string, error) {
	rt, ok := r.routes[routeName]
	if !ok {
		return nil, "", fmt.Errorf("unknown route: %s", routeName)
	}
	return rt.clients[0], rt.models[0], nil
}

// Chat runs a request down the route's fallback chain. A model override
// applies to every link; otherwise each link uses its configured model.
// Stub clients terminate the chain since they always succeed.
func (r *Registry) Chat(ctx context.Context, routeName, modelOverride string, messages []Message) (*ChatResponse, error) {
	rt, ok := r.routes[routeName]
	if !ok {
		return nil, fmt.Errorf("unknown route: %s", routeName)
	}

	var lastErr error
	for i, client := range rt.clients {
		model := rt.models[i]
		if modelOverride != "" {
			model = modelOverride
		}

		resp, err := client.Chat(ctx, ChatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: r.temperature,
			MaxTokens:   r.maxTokens,
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.log.Warn().Str("route", routeName).Str("provider", client.Name()).Err(err).Msg("provider failed, trying fallback")

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("route %s: all providers failed: %w", routeName, lastErr)
}
