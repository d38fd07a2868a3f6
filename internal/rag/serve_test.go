package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testServer(t *testing.T) (*Server, *Engine) {
	t.Helper()
	e := testEngine(t)
	return NewServer(e), e
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServerHealth(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	w := doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
}

func TestServerSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/search", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestServerAddDocumentAndSearch(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/documents", `{"text":"# Memory\n\nredis tier with jsonl fallback","source":"notes.md"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var addResp struct {
		Success bool `json:"success"`
		Added   int  `json:"added"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &addResp); err != nil {
		t.Fatal(err)
	}
	if !addResp.Success || addResp.Added != 1 {
		t.Fatalf("Unexpected add response: %+v", addResp)
	}

	w = doRequest(t, s, http.MethodGet, "/api/search?q=redis+fallback&limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var searchResp struct {
		Success bool           `json:"success"`
		Count   int            `json:"count"`
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &searchResp); err != nil {
		t.Fatal(err)
	}
	if searchResp.Count != 1 || searchResp.Results[0].Document.Source != "notes.md" {
		t.Errorf("Unexpected search response: %+v", searchResp)
	}
}

func TestServerAddDocumentRejectsMissingText(t *testing.T) {
	t.Parallel()

	s, _ := testServer(t)
	w := doRequest(t, s, http.MethodPost, "/api/documents", `{"source":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestServerStats(t *testing.T) {
	t.Parallel()

	s, e := testServer(t)
	if _, err := e.IndexText(context.Background(), "# A\n\ncontent", "a.md"); err != nil {
		t.Fatal(err)
	}

	w := doRequest(t, s, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var stats IndexStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 1 || stats.Embedder != "local-hash" {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
