// Package worker contains the asynchronous side of ranking: consuming
// recompute jobs published by the evaluation write path.
package worker

import (
	"context"
	"fmt"

	"github.com/global-partner-dev/cocoa-judging/internal/app/ranking"
	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// RecomputeProcessor folds queued recompute jobs into leaderboard rebuilds.
// Jobs carry only a contest id, so duplicate jobs for the same contest are
// harmless: recompute is idempotent.
type RecomputeProcessor struct {
	aggregator *ranking.Aggregator
}

func NewRecomputeProcessor(aggregator *ranking.Aggregator) *RecomputeProcessor {
	return &RecomputeProcessor{aggregator: aggregator}
}

func (p *RecomputeProcessor) Process(ctx context.Context, contestID domain.ContestID) error {
	if _, err := p.aggregator.Recompute(ctx, contestID); err != nil {
		return fmt.Errorf("worker: recompute contest %s: %w", contestID, err)
	}
	return nil
}
