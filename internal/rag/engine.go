package rag

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// maxChunkChars caps chunk size so a single giant section can't blow the
// embedding request.
const maxChunkChars = 4000

// Engine ties the embedder and the vector index together.
type Engine struct {
	index    VectorIndex
	embedder Embedder
	log      zerolog.Logger
}

// IndexStats summarizes the corpus for the stats endpoints.
type IndexStats struct {
	Documents int    `json:"documents"`
	Embedder  string `json:"embedder"`
}

// NewEngine creates a search engine over the given index and embedder.
func NewEngine(index VectorIndex, embedder Embedder, log zerolog.Logger) *Engine {
	return &Engine{index: index, embedder: embedder, log: log}
}

// IndexText chunks, embeds, and stores one document. source labels where
// the text came from. Returns the number of newly indexed chunks;
// already-indexed chunks are skipped.
func (e *Engine) IndexText(ctx context.Context, text, source string) (int, error) {
	sections := ChunkMarkdown(text, maxChunkChars)
	if len(sections) == 0 {
		return 0, nil
	}

	texts := make([]string, len(sections))
	for i, sec := range sections {
		texts[i] = sec.Content
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(sections) {
		return 0, fmt.Errorf("expected %d vectors, got %d", len(sections), len(vectors))
	}

	added := 0
	for i, sec := range sections {
		doc := Document{
			ID:      DocumentID(sec.Content),
			Text:    sec.Content,
			Source:  source,
			Section: sec.Title,
		}
		ok, err := e.index.Add(ctx, doc, vectors[i])
		if err != nil {
			return added, fmt.Errorf("indexing %s: %w", source, err)
		}
		if ok {
			added++
		}
	}

	e.log.Debug().Str("source", source).Int("chunks", len(sections)).Int("added", added).Msg("indexed document")
	return added, nil
}

// IndexPath indexes a markdown/text file, or every .md/.txt file under a
// directory. Returns the number of newly indexed chunks.
func (e *Engine) IndexPath(ctx context.Context, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return e.indexFile(ctx, path)
	}

	total := 0
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".md", ".txt", ".markdown":
			n, err := e.indexFile(ctx, p)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	return total, err
}

func (e *Engine) indexFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return e.IndexText(ctx, string(data), path)
}

// Search embeds the query and returns the top-K documents.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	vec, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	return e.index.Search(ctx, vec, limit)
}

// Stats reports the corpus size and the active embedder.
func (e *Engine) Stats() IndexStats {
	return IndexStats{Documents: e.index.Count(), Embedder: e.embedder.Name()}
}
