// Package redis implements the recompute-job queue and the evaluation
// counters on top of Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// RecomputeQueue uses a Redis list to hand ranking rebuilds to the worker.
// Payloads are bare contest ids: jobs carry no state, so duplicates collapse
// into idempotent recomputes.
type RecomputeQueue struct {
	client *redis.Client
	key    string
}

func NewRecomputeQueue(client *redis.Client, key string) *RecomputeQueue {
	return &RecomputeQueue{
		client: client,
		key:    key,
	}
}

func (q *RecomputeQueue) PublishRecompute(ctx context.Context, contestID domain.ContestID) error {
	if err := q.client.LPush(ctx, q.key, string(contestID)).Err(); err != nil {
		return fmt.Errorf("redis queue: enqueue recompute: %w", err)
	}
	return nil
}

func (q *RecomputeQueue) ConsumeRecomputes(ctx context.Context, handler func(context.Context, domain.ContestID) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// BRPOP blocks with a short timeout so the context stays honored.
		res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("redis queue: consume recompute: %w", err)
		}

		if len(res) != 2 || res[1] == "" {
			continue
		}

		// The handler decides whether the job succeeded; errors stop the loop.
		if err := handler(ctx, domain.ContestID(res[1])); err != nil {
			return err
		}
	}
}

var _ domain.RecomputeQueue = (*RecomputeQueue)(nil)
