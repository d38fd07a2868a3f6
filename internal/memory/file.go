package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	memoryFilename       = "unified_memory.jsonl"
	conversationFilename = "conversations.jsonl"
	sessionLogFilename   = "session.md"
)

// FileStore is the durable memory tier: append-only JSONL under the memory
// directory plus a human-readable markdown session log.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the memory directory layout if missing
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"runs", "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create memory directory: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Name() string { return "file" }

// Dir returns the memory directory root
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) appendJSONL(filename string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", filename, err)
	}
	return nil
}

// Remember appends the record to the JSONL file
func (s *FileStore) Remember(_ context.Context, rec Record) error {
	return s.appendJSONL(memoryFilename, rec)
}

// Recall scans the JSONL file for substring matches. Later entries win for
// duplicate keys, so the file is read fully and deduplicated by key.
func (s *FileStore) Recall(_ context.Context, query, category string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}

	path := filepath.Join(s.dir, memoryFilename)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open memory file: %w", err)
	}
	defer f.Close()

	byKey := make(map[string]Record)
	var order []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue // tolerate corrupt lines
		}
		if category != "" && rec.Category != category {
			continue
		}
		if !matches(rec, query) {
			continue
		}
		id := rec.Category + ":" + rec.Key
		if _, seen := byKey[id]; !seen {
			order = append(order, id)
		}
		byKey[id] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan memory file: %w", err)
	}

	var results []Record
	for _, id := range order {
		rec := byKey[id]
		rec.Source = s.Name()
		results = append(results, rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// LogConversation appends to the conversations JSONL and the markdown
// session log.
func (s *FileStore) LogConversation(_ context.Context, conv Conversation) error {
	if err := s.appendJSONL(conversationFilename, conv); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := fmt.Sprintf("## %s (%s)\n\n**User:** %s\n\n**Assistant:** %s\n\n",
		conv.Timestamp.Format("2006-01-02 15:04:05"), conv.Model, conv.User, conv.Assistant)

	f, err := os.OpenFile(filepath.Join(s.dir, "logs", sessionLogFilename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write session log: %w", err)
	}
	return nil
}

// History returns the most recent conversations, newest first
func (s *FileStore) History(_ context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 10
	}

	path := filepath.Join(s.dir, conversationFilename)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation file: %w", err)
	}
	defer f.Close()

	var all []Conversation
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var conv Conversation
		if err := json.Unmarshal(scanner.Bytes(), &conv); err != nil {
			continue
		}
		all = append(all, conv)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan conversation file: %w", err)
	}

	// File is append-ordered oldest first; reverse and cap
	var results []Conversation
	for i := len(all) - 1; i >= 0 && len(results) < limit; i-- {
		results = append(results, all[i])
	}
	return results, nil
}
