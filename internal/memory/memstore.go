package memory

import (
	"context"
	"sync"
)

// MemStore is the in-memory tier used in offline mode and as the terminal
// fallback. Contents are lost when the process exits.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]Record // category:key -> record
	order   []string
	convs   []Conversation
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]Record)}
}

func (s *MemStore) Name() string { return "stub" }

// Remember stores the record; same key overwrites
func (s *MemStore) Remember(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := rec.Category + ":" + rec.Key
	if _, seen := s.records[id]; !seen {
		s.order = append(s.order, id)
	}
	s.records[id] = rec
	return nil
}

// Recall returns records matching the query, insertion order
func (s *MemStore) Recall(_ context.Context, query, category string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Record
	for _, id := range s.order {
		rec := s.records[id]
		if category != "" && rec.Category != category {
			continue
		}
		if !matches(rec, query) {
			continue
		}
		rec.Source = s.Name()
		results = append(results, rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// LogConversation appends to the in-memory log
func (s *MemStore) LogConversation(_ context.Context, conv Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = append(s.convs, conv)
	return nil
}

// History returns recent conversations, newest first
func (s *MemStore) History(_ context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Conversation
	for i := len(s.convs) - 1; i >= 0 && len(results) < limit; i-- {
		results = append(results, s.convs[i])
	}
	return results, nil
}
