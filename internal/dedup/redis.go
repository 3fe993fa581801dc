package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGate moves the cooldown check into shared storage so that multiple
// collector instances writing to the same store suppress each other's
// redundant writes. A MemoryGate cannot do that: each instance would keep
// its own window.
//
// Redis failures fail open: a duplicate aggregate write is cheaper than a
// dropped one. Errors are returned alongside the decision so callers can
// count them.
type RedisGate struct {
	client *redis.Client
	window time.Duration
	logger *slog.Logger
}

// NewRedisGate creates a Gate backed by the given Redis client. A zero
// window falls back to DefaultCooldownWindow.
func NewRedisGate(client *redis.Client, window time.Duration, logger *slog.Logger) *RedisGate {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisGate{client: client, window: window, logger: logger}
}

// ShouldWrite implements Gate. The coalesced count lives in one key that
// every call increments; window ownership lives in a second key claimed
// with SET NX so exactly one caller per window is allowed through.
func (g *RedisGate) ShouldWrite(ctx context.Context, locationName, date string, hour int) (Decision, error) {
	key := "pulse:dedup:" + bucketKey(locationName, date, hour)

	pipe := g.client.Pipeline()
	countCmd := pipe.Incr(ctx, key+":count")
	// Count keys expire with the bucket's natural lifetime; 26h covers a
	// full activity date in any timezone offset.
	pipe.Expire(ctx, key+":count", 26*time.Hour)
	claimCmd := pipe.SetNX(ctx, key+":window", time.Now().Unix(), g.window)
	if _, err := pipe.Exec(ctx); err != nil {
		g.logger.Warn("dedup redis check failed, failing open",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return Decision{Allow: true, Count: 0}, err
	}

	return Decision{Allow: claimCmd.Val(), Count: countCmd.Val()}, nil
}
