// Package throttle guards the public submission endpoint with a per-judge
// rate limit (Redis fixed windows) and a noop mode for when it is disabled.
package throttle

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

var ErrRateLimitExceeded = fmt.Errorf("submission rate limit exceeded")

// RedisRateLimiter bounds submissions per (judge, contest) in fixed windows.
type RedisRateLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "throttle"
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: prefix,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, judgeID domain.UserID, contestID domain.ContestID) error {
	if r.client == nil || r.limit <= 0 || r.window <= 0 {
		// Invalid configuration falls back to permissive mode.
		return nil
	}

	key := r.buildKey(judgeID, contestID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("throttle: increment window key: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return fmt.Errorf("throttle: set window expiry: %w", err)
		}
	}

	if int(count) > r.limit {
		return ErrRateLimitExceeded
	}

	return nil
}

func (r *RedisRateLimiter) buildKey(judgeID domain.UserID, contestID domain.ContestID) string {
	// Hashing keeps judge identifiers out of raw Redis keys.
	base := fmt.Sprintf("%s|%s", contestID, judgeID)
	hash := sha1.Sum([]byte(base))
	return fmt.Sprintf("%s:%s", r.keyPrefix, hex.EncodeToString(hash[:]))
}

var _ domain.Throttle = (*RedisRateLimiter)(nil)
