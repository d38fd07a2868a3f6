package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func completionBody(content, model string) string {
	resp := chatCompletionResponse{Model: model}
	resp.Choices = []struct {
		Message Message `json:"message"`
	}{{Message: Message{Role: "assistant", Content: content}}}
	resp.Usage = Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestOpenAICompatChat(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("Expected model gpt-4o, got %s", req.Model)
		}
		w.Write([]byte(completionBody("  hello world  ", "gpt-4o")))
	}))
	defer srv.Close()

	client := NewOpenAICompatClient("openai", "sk-test", srv.URL, 5, nil)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Expected bearer auth, got '%s'", gotAuth)
	}
	if resp.Content != "hello world" {
		t.Errorf("Expected trimmed content 'hello world', got '%s'", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenRouterHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("HTTP-Referer") != "https://payready.ai" {
			t.Errorf("Missing OpenRouter referer header")
		}
		if r.Header.Get("X-Title") != "PayReady AI" {
			t.Errorf("Missing OpenRouter title header")
		}
		w.Write([]byte(completionBody("ok", "openai/gpt-4o")))
	}))
	defer srv.Close()

	client := NewOpenRouterClient("or-key", srv.URL, 5)
	if _, err := client.Chat(context.Background(), ChatRequest{
		Model:    "openai/gpt-4o",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
}

func TestRetryOnServerError(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionBody("recovered", "gpt-4o")))
	}))
	defer srv.Close()

	client := NewOpenAICompatClient("openai", "sk-test", srv.URL, 5, nil)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Expected retries to recover, got: %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("Expected 'recovered', got '%s'", resp.Content)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad model name"}}`))
	}))
	defer srv.Close()

	client := NewOpenAICompatClient("openai", "sk-test", srv.URL, 5, nil)
	_, err := client.Chat(context.Background(), ChatRequest{
		Model:    "nope",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Expected error on 400")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "bad model name" {
		t.Errorf("Expected decoded error message, got '%s'", apiErr.Message)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected exactly 1 call on client error, got %d", calls)
	}
}

func TestAnthropicSystemLifting(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "ak-test" {
			t.Errorf("Missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("Missing anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.System != "be terse" {
			t.Errorf("Expected system prompt lifted, got '%s'", req.System)
		}
		for _, m := range req.Messages {
			if m.Role == "system" {
				t.Error("System message leaked into messages array")
			}
		}

		resp := anthropicResponse{Model: req.Model}
		resp.Content = []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{{Type: "text", Text: "claude says hi"}}
		resp.Usage.InputTokens = 7
		resp.Usage.OutputTokens = 3
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewAnthropicClient("ak-test", srv.URL, 5)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "claude says hi" {
		t.Errorf("Unexpected content: %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("Expected total tokens 10, got %d", resp.Usage.TotalTokens)
	}
}

func TestPortkeyVirtualKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-portkey-api-key") != "pk-test" {
			t.Errorf("Missing portkey api key header")
		}
		var req portkeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.VirtualKey != "pk-vk-anthropic" {
			t.Errorf("Expected virtual key in body, got '%s'", req.VirtualKey)
		}
		w.Write([]byte(completionBody("routed", "gpt-4o")))
	}))
	defer srv.Close()

	client := NewPortkeyClient("pk-test", "pk-vk-anthropic", srv.URL, 5)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Provider != "portkey" {
		t.Errorf("Expected provider portkey, got %s", resp.Provider)
	}
}

func TestStubClient(t *testing.T) {
	t.Parallel()

	client := NewStubClient("openrouter")
	resp, err := client.Chat(context.Background(), ChatRequest{
		Model:    "openai/gpt-4o",
		Messages: []Message{{Role: "user", Content: "what is the weather"}},
	})
	if err != nil {
		t.Fatalf("Stub chat failed: %v", err)
	}
	if !strings.Contains(resp.Content, "Offline Mode Response from openrouter") {
		t.Errorf("Stub response missing banner: %s", resp.Content)
	}
	if !strings.Contains(resp.Content, "what is the weather") {
		t.Errorf("Stub response should echo the query: %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 100 {
		t.Errorf("Expected canned usage of 100 tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestMissingKeyErrors(t *testing.T) {
	t.Parallel()

	client := NewOpenAICompatClient("openai", "", "http://localhost:0", 1, nil)
	if _, err := client.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}); err == nil {
		t.Error("Expected error for missing API key")
	}
}
