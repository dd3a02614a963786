package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CallbackDedupePrefix is the prefix for processed Telegram callback ids
	CallbackDedupePrefix = "telegram:callback:"
	// CallbackDedupeTTL is how long a processed callback id is remembered
	CallbackDedupeTTL = 24 * time.Hour
)

// Deduplicator remembers processed ids so a redelivered update is handled once
type Deduplicator struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCallbackDeduplicator creates a Deduplicator for Telegram callback queries
func NewCallbackDeduplicator(client *redis.Client) *Deduplicator {
	return &Deduplicator{client: client, prefix: CallbackDedupePrefix, ttl: CallbackDedupeTTL}
}

// FirstSeen marks id as processed and reports whether this is the first time it was seen.
// Without Redis, or when Redis fails, every id counts as first seen.
func (d *Deduplicator) FirstSeen(ctx context.Context, id string) bool {
	if d == nil || d.client == nil || id == "" {
		return true
	}

	ok, err := d.client.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		slog.Warn("Failed to record processed id in Redis", "id", id, "error", err)
		return true
	}
	return ok
}

// Forget removes the processed mark for id
func (d *Deduplicator) Forget(ctx context.Context, id string) {
	if d == nil || d.client == nil || id == "" {
		return
	}

	if err := d.client.Del(ctx, d.prefix+id).Err(); err != nil {
		slog.Warn("Failed to clear processed id in Redis", "id", id, "error", err)
	}
}
