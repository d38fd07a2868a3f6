package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	t.Parallel()

	e := NewLocalEmbedder(64)
	ctx := context.Background()

	a, err := e.EmbedQuery(ctx, "redis memory tier")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.EmbedQuery(ctx, "redis memory tier")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("Expected 64 dims, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("Same text must embed identically")
		}
	}

	c, err := e.EmbedQuery(ctx, "slack channel analytics")
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Different texts should produce different vectors")
	}
}

func TestLocalEmbedderSimilarityOrdering(t *testing.T) {
	t.Parallel()

	e := NewLocalEmbedder(128)
	ctx := context.Background()

	query, _ := e.EmbedQuery(ctx, "redis memory store")
	near, _ := e.EmbedQuery(ctx, "the memory store uses redis")
	far, _ := e.EmbedQuery(ctx, "gin http routing middleware")

	nearScore := dotProduct(normalize(query), normalize(near))
	farScore := dotProduct(normalize(query), normalize(far))
	if nearScore <= farScore {
		t.Errorf("Token overlap should win: near=%f far=%f", nearScore, farScore)
	}
}

func TestOpenAIEmbedderBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Wrong auth header: %s", got)
		}
		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("Wrong model: %s", req.Model)
		}
		resp := openaiEmbedResponse{}
		// Return embeddings out of order; the client must reorder by index.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(i), 1}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("test-key", "text-embedding-3-small", 0)
	e.baseURL = srv.URL

	vecs, err := e.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("Expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i) {
			t.Errorf("Vector %d not reordered by index: %v", i, v)
		}
	}
}

func TestOpenAIEmbedderRetriesOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(openaiEmbedResponse{Data: []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{{Embedding: []float32{1}, Index: 0}}})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("test-key", "text-embedding-3-small", 0)
	e.baseURL = srv.URL

	if _, err := e.EmbedQuery(context.Background(), "q"); err != nil {
		t.Fatalf("Expected recovery on third attempt: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", calls.Load())
	}
}

func TestOpenAIEmbedderNoRetryOnBadRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"input too long"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("test-key", "text-embedding-3-small", 0)
	e.baseURL = srv.URL

	_, err := e.EmbedQuery(context.Background(), "q")
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("400 must not be retried, got %d calls", calls.Load())
	}
}

func TestOpenAIEmbedderRequiresKey(t *testing.T) {
	t.Parallel()

	e := NewOpenAIEmbedder("", "text-embedding-3-small", 0)
	if _, err := e.EmbedQuery(context.Background(), "q"); err == nil {
		t.Error("Expected error without API key")
	}
}
