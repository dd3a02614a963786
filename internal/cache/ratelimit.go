package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitPrefix is the prefix for fixed-window counter keys
	RateLimitPrefix = "rate_limit:"
)

// RateLimiter is a fixed-window counter shared by every instance through Redis.
// A nil client or a Redis failure lets the request through.
type RateLimiter struct {
	client *redis.Client
	name   string
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit hits per window for each key
func NewRateLimiter(client *redis.Client, name string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, name: name, limit: limit, window: window}
}

// Allow records a hit for key and reports whether it is within the limit.
// retryAfter is the remaining window when the limit is exceeded.
func (l *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, 0
	}

	redisKey := fmt.Sprintf("%s%s:%s", RateLimitPrefix, l.name, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		slog.Warn("Rate limiter unavailable, allowing request", "limiter", l.name, "error", err)
		return true, 0
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			slog.Warn("Failed to set rate limit window", "limiter", l.name, "error", err)
		}
	}

	if count > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return false, ttl
	}

	return true, 0
}
