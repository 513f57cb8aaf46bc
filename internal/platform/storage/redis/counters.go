package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// Counters tracks evaluation volume per contest/sample under prefixed keys.
type Counters struct {
	client *redis.Client
	prefix string
}

func NewCounters(client *redis.Client, prefix string) *Counters {
	return &Counters{
		client: client,
		prefix: prefix,
	}
}

func (c *Counters) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return c.client.IncrBy(ctx, c.key(key), delta).Result()
}

func (c *Counters) Get(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Get(ctx, c.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (c *Counters) GetAll(ctx context.Context, keys []string) (map[string]int64, error) {
	if len(keys) == 0 {
		return map[string]int64{}, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}

	// MGET keeps the progress endpoint to a single round-trip.
	values, err := c.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(keys))
	for i, raw := range values {
		if raw == nil {
			out[keys[i]] = 0
			continue
		}

		switch v := raw.(type) {
		case string:
			num, convErr := strconv.ParseInt(v, 10, 64)
			if convErr != nil {
				return nil, fmt.Errorf("redis counters: invalid value for %s: %w", keys[i], convErr)
			}
			out[keys[i]] = num
		case int64:
			out[keys[i]] = v
		default:
			return nil, fmt.Errorf("redis counters: unexpected type %T", raw)
		}
	}

	return out, nil
}

func (c *Counters) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return fmt.Sprintf("%s:%s", c.prefix, k)
}

var _ domain.Counter = (*Counters)(nil)
