package rag

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"
)

func openTestIndex(t *testing.T) (*SQLiteIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rag.db")
	idx, err := OpenSQLiteIndex(path)
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx, path
}

func TestAddAndSearchOrdering(t *testing.T) {
	t.Parallel()

	idx, _ := openTestIndex(t)
	ctx := context.Background()

	docs := []struct {
		id  string
		vec []float32
	}{
		{"exact", []float32{1, 0, 0}},
		{"close", []float32{0.9, 0.1, 0}},
		{"far", []float32{0, 1, 0}},
		{"opposite", []float32{-1, 0, 0}},
	}
	for _, d := range docs {
		added, err := idx.Add(ctx, Document{ID: d.id, Text: d.id}, d.vec)
		if err != nil {
			t.Fatalf("Add %s: %v", d.id, err)
		}
		if !added {
			t.Fatalf("Add %s: expected new document", d.id)
		}
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Document.ID != "exact" || results[1].Document.ID != "close" {
		t.Errorf("Wrong ordering: %s, %s", results[0].Document.ID, results[1].Document.ID)
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("Exact match should score 1.0, got %f", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("Results out of order at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	t.Parallel()

	idx, _ := openTestIndex(t)
	ctx := context.Background()

	doc := Document{Text: "the memory layer uses redis with a file fallback"}
	added, err := idx.Add(ctx, doc, []float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Fatal("First add should index the document")
	}

	added, err = idx.Add(ctx, doc, []float32{4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("Second add of identical text should be a no-op")
	}
	if idx.Count() != 1 {
		t.Errorf("Expected 1 document, got %d", idx.Count())
	}
}

func TestDocumentIDIsStable(t *testing.T) {
	t.Parallel()

	a := DocumentID("same text")
	b := DocumentID("same text")
	c := DocumentID("different text")
	if a != b {
		t.Error("Same text must produce the same ID")
	}
	if a == c {
		t.Error("Different text must produce different IDs")
	}
	if len(a) != 16 {
		t.Errorf("Expected 16 hex chars, got %d", len(a))
	}
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rag.db")
	idx, err := OpenSQLiteIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	doc := Document{
		ID:        "persisted",
		Text:      "redis tier with ttl",
		Source:    "notes.md",
		Section:   "Memory",
		Metadata:  map[string]string{"lang": "en"},
		CreatedAt: time.Now(),
	}
	if _, err := idx.Add(ctx, doc, []float32{0.2, 0.8, 0.1}); err != nil {
		t.Fatal(err)
	}
	idx.Close()

	reopened, err := OpenSQLiteIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if reopened.Count() != 1 {
		t.Fatalf("Expected 1 document after reopen, got %d", reopened.Count())
	}
	results, err := reopened.Search(ctx, []float32{0.2, 0.8, 0.1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := results[0].Document
	if got.Text != doc.Text || got.Source != doc.Source || got.Section != doc.Section {
		t.Errorf("Document fields lost across reopen: %+v", got)
	}
	if got.Metadata["lang"] != "en" {
		t.Errorf("Metadata lost across reopen: %+v", got.Metadata)
	}
}

func TestSearchSkipsMismatchedDimensions(t *testing.T) {
	t.Parallel()

	idx, _ := openTestIndex(t)
	ctx := context.Background()

	if _, err := idx.Add(ctx, Document{ID: "d3", Text: "three"}, []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Add(ctx, Document{ID: "d2", Text: "two"}, []float32{1, 0}); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "d3" {
		t.Errorf("Expected only the 3-dim document, got %+v", results)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	t.Parallel()

	out := normalize([]float32{0, 0, 0})
	for _, x := range out {
		if x != 0 {
			t.Errorf("Zero vector should normalize to zeros, got %v", out)
		}
	}
}
