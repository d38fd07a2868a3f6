// Package rag provides local retrieval: markdown chunking, embeddings, and
// a SQLite-backed vector index searched by exact cosine similarity.
package rag

import (
	"container/heap"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document is one indexed chunk of text.
type Document struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Source    string            `json:"source,omitempty"`
	Section   string            `json:"section,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// SearchResult pairs a document with its cosine similarity to the query.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// VectorIndex is the storage surface the search layer needs. Only the
// SQLite store ships; a remote backend would slot in behind this.
type VectorIndex interface {
	Add(ctx context.Context, doc Document, vector []float32) (bool, error)
	Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error)
	Count() int
	Close() error
}

// DocumentID derives a stable ID from the chunk text, so re-indexing the
// same content is a no-op.
func DocumentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

// SQLiteIndex stores documents and their embeddings in SQLite. Vectors are
// normalized on insert and held in memory, so dot product equals cosine
// similarity and search is exact. At the corpus sizes a project knowledge
// base reaches this stays sub-millisecond.
type SQLiteIndex struct {
	db *sql.DB

	mu      sync.RWMutex
	vectors map[string][]float32
}

// OpenSQLiteIndex opens (creating if needed) the index at path and loads
// existing vectors into memory.
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	idx := &SQLiteIndex{db: db, vectors: make(map[string][]float32)}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index migrate: %w", err)
	}
	if err := idx.loadAll(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index load: %w", err)
	}
	return idx, nil
}

func (idx *SQLiteIndex) migrate() error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			source     TEXT,
			section    TEXT,
			metadata   TEXT,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS vectors (
			doc_id     TEXT PRIMARY KEY REFERENCES documents(id),
			embedding  BLOB NOT NULL,
			dimensions INTEGER NOT NULL
		);
	`)
	return err
}

func (idx *SQLiteIndex) loadAll() error {
	rows, err := idx.db.Query("SELECT doc_id, embedding, dimensions FROM vectors")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		var dims int
		if err := rows.Scan(&id, &blob, &dims); err != nil {
			return err
		}
		idx.vectors[id] = blobToFloat32(blob, dims)
	}
	return rows.Err()
}

// Add stores a document and its vector. Returns false without writing when
// the document ID is already indexed.
func (idx *SQLiteIndex) Add(ctx context.Context, doc Document, vector []float32) (bool, error) {
	if doc.ID == "" {
		doc.ID = DocumentID(doc.Text)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.vectors[doc.ID]; exists {
		return false, nil
	}

	var meta []byte
	if len(doc.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(doc.Metadata)
		if err != nil {
			return false, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	normalized := normalize(vector)
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, text, source, section, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Text, doc.Source, doc.Section, string(meta), doc.CreatedAt); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vectors (doc_id, embedding, dimensions) VALUES (?, ?, ?)
	`, doc.ID, float32ToBlob(normalized), len(normalized)); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	idx.vectors[doc.ID] = normalized
	return true, nil
}

// Search returns the top-K documents by cosine similarity. A min-heap
// tracks only the current top-K while scanning the in-memory vectors.
func (idx *SQLiteIndex) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	query := normalize(vector)

	idx.mu.RLock()
	h := &minHeap{}
	heap.Init(h)
	for id, vec := range idx.vectors {
		if len(vec) != len(query) {
			continue
		}
		score := dotProduct(query, vec)
		if h.Len() < limit {
			heap.Push(h, scored{id: id, score: score})
		} else if score > (*h)[0].score {
			(*h)[0] = scored{id: id, score: score}
			heap.Fix(h, 0)
		}
	}
	idx.mu.RUnlock()

	ordered := make([]scored, h.Len())
	for i := len(ordered) - 1; i >= 0; i-- {
		ordered[i] = heap.Pop(h).(scored)
	}

	results := make([]SearchResult, 0, len(ordered))
	for _, s := range ordered {
		doc, err := idx.getDocument(ctx, s.id)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Document: doc, Score: s.score})
	}
	return results, nil
}

func (idx *SQLiteIndex) getDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	var meta sql.NullString
	var source, section sql.NullString

	err := idx.db.QueryRowContext(ctx, `
		SELECT id, text, source, section, metadata, created_at
		FROM documents WHERE id = ?
	`, id).Scan(&doc.ID, &doc.Text, &source, &section, &meta, &doc.CreatedAt)
	if err != nil {
		return doc, fmt.Errorf("document %s: %w", id, err)
	}
	doc.Source = source.String
	doc.Section = section.String
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &doc.Metadata); err != nil {
			return doc, fmt.Errorf("document %s: corrupt metadata: %w", id, err)
		}
	}
	return doc, nil
}

// Count returns the number of indexed documents.
func (idx *SQLiteIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Close closes the underlying database.
func (idx *SQLiteIndex) Close() error {
	return idx.db.Close()
}

type scored struct {
	id    string
	score float64
}

// minHeap keeps the lowest score at the root for top-K selection.
type minHeap []scored

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].score < h[j].score }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func float32ToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func blobToFloat32(b []byte, dims int) []float32 {
	v := make([]float32, dims)
	for i := 0; i < dims && i*4+4 <= len(b); i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
