package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const conversationList = "memory:conversations"

// RedisStore is the fast memory tier. Records live under
// memory:<category>:<key> with a TTL; conversations go to a capped list.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies it with a ping
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Name() string { return "redis" }

// Close releases the client connection
func (s *RedisStore) Close() error { return s.client.Close() }

func recordKey(category, key string) string {
	return fmt.Sprintf("memory:%s:%s", category, key)
}

// Remember stores a record with the configured TTL; same key overwrites
func (s *RedisStore) Remember(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.client.Set(ctx, recordKey(rec.Category, rec.Key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Recall scans for keys matching the query within a category and filters
// the decoded records by substring match.
func (s *RedisStore) Recall(ctx context.Context, query, category string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}
	pattern := recordKey(category, "*")
	if category == "" {
		pattern = "memory:*:*"
	}

	var results []Record
	iter := s.client.Scan(ctx, 0, pattern, int64(limit*10)).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue // expired between scan and get
		}
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		if matches(rec, query) {
			rec.Source = s.Name()
			results = append(results, rec)
			if len(results) >= limit {
				break
			}
		}
	}
	if err := iter.Err(); err != nil {
		return results, fmt.Errorf("redis scan failed: %w", err)
	}
	return results, nil
}

// LogConversation pushes onto a capped list, newest first
func (s *RedisStore) LogConversation(ctx context.Context, conv Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, conversationList, data)
	pipe.LTrim(ctx, conversationList, 0, 999)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis conversation log failed: %w", err)
	}
	return nil
}

// History returns recent conversations, newest first
func (s *RedisStore) History(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 10
	}
	items, err := s.client.LRange(ctx, conversationList, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis history failed: %w", err)
	}

	convs := make([]Conversation, 0, len(items))
	for _, item := range items {
		var conv Conversation
		if err := json.Unmarshal([]byte(item), &conv); err != nil {
			continue
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

// matches reports whether a record is relevant to the query string
func matches(rec Record, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(rec.Key), q) ||
		strings.Contains(strings.ToLower(rec.Value), q) ||
		strings.Contains(strings.ToLower(rec.Category), q)
}
