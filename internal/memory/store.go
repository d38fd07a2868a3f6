// Package memory implements the tiered memory store: Redis when reachable,
// JSONL files as the durable backup, and an in-memory map for offline mode.
// Writes fan out to every available tier; reads walk the chain.
package memory

import (
	"context"
	"time"
)

// Record is a single remembered fact
type Record struct {
	Key       string                 `json:"key"`
	Value     string                 `json:"value"`
	Category  string                 `json:"category"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source,omitempty"`
}

// Conversation is one logged query/response exchange
type Conversation struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Model     string    `json:"model"`
}

// Store is a single memory tier
type Store interface {
	Remember(ctx context.Context, rec Record) error
	Recall(ctx context.Context, query, category string, limit int) ([]Record, error)
	LogConversation(ctx context.Context, conv Conversation) error
	History(ctx context.Context, limit int) ([]Conversation, error)
	Name() string
}
