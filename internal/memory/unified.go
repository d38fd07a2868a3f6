package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai-cherry/payready-ai/internal/config"
)

// Unified fans writes across every available tier and reads through the
// chain until the limit fills. Tier failures degrade with a warning; a write
// succeeds if any tier accepted it.
type Unified struct {
	tiers []Store
	log   zerolog.Logger
}

// Open builds the tier chain from config: Redis when configured and
// reachable, the JSONL file store, and the in-memory stub in offline mode.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) *Unified {
	var tiers []Store

	if cfg.Providers.Offline {
		return &Unified{tiers: []Store{NewMemStore()}, log: log}
	}

	if cfg.Memory.RedisURL != "" {
		rs, err := NewRedisStore(ctx, cfg.Memory.RedisURL, time.Duration(cfg.Memory.TTLSec)*time.Second)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, falling back to file storage")
		} else {
			tiers = append(tiers, rs)
		}
	}

	fs, err := NewFileStore(cfg.MemoryDir())
	if err != nil {
		log.Warn().Err(err).Msg("file storage unavailable, falling back to in-memory store")
	} else {
		tiers = append(tiers, fs)
	}

	if len(tiers) == 0 {
		tiers = append(tiers, NewMemStore())
	}

	return &Unified{tiers: tiers, log: log}
}

// NewUnified wraps an explicit tier chain (for tests)
func NewUnified(log zerolog.Logger, tiers ...Store) *Unified {
	return &Unified{tiers: tiers, log: log}
}

func (u *Unified) Name() string { return "unified" }

// Tiers lists the names of the active tiers, fastest first
func (u *Unified) Tiers() []string {
	names := make([]string, len(u.tiers))
	for i, t := range u.tiers {
		names[i] = t.Name()
	}
	return names
}

// Remember writes to every tier; succeeds if at least one accepted it
func (u *Unified) Remember(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Category == "" {
		rec.Category = "general"
	}

	var lastErr error
	stored := false
	for _, tier := range u.tiers {
		if err := tier.Remember(ctx, rec); err != nil {
			lastErr = err
			u.log.Warn().Str("tier", tier.Name()).Err(err).Msg("memory store failed")
			continue
		}
		stored = true
	}
	if !stored {
		return fmt.Errorf("all memory tiers failed: %w", lastErr)
	}
	return nil
}

// Recall walks the tiers fastest-first, deduplicating by category:key,
// until the limit fills.
func (u *Unified) Recall(ctx context.Context, query, category string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}

	seen := make(map[string]bool)
	var results []Record
	for _, tier := range u.tiers {
		recs, err := tier.Recall(ctx, query, category, limit-len(results))
		if err != nil {
			u.log.Warn().Str("tier", tier.Name()).Err(err).Msg("memory recall failed")
			continue
		}
		for _, rec := range recs {
			id := rec.Category + ":" + rec.Key
			if seen[id] {
				continue
			}
			seen[id] = true
			results = append(results, rec)
		}
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// LogConversation records the exchange in every tier
func (u *Unified) LogConversation(ctx context.Context, conv Conversation) error {
	if conv.Timestamp.IsZero() {
		conv.Timestamp = time.Now()
	}

	var lastErr error
	logged := false
	for _, tier := range u.tiers {
		if err := tier.LogConversation(ctx, conv); err != nil {
			lastErr = err
			u.log.Warn().Str("tier", tier.Name()).Err(err).Msg("conversation log failed")
			continue
		}
		logged = true
	}
	if !logged {
		return fmt.Errorf("all memory tiers failed: %w", lastErr)
	}
	return nil
}

// History reads from the first tier that answers
func (u *Unified) History(ctx context.Context, limit int) ([]Conversation, error) {
	var lastErr error
	for _, tier := range u.tiers {
		convs, err := tier.History(ctx, limit)
		if err != nil {
			lastErr = err
			u.log.Warn().Str("tier", tier.Name()).Err(err).Msg("history read failed")
			continue
		}
		if len(convs) > 0 {
			return convs, nil
		}
	}
	return nil, lastErr
}
