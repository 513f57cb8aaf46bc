// Package ranking turns per-judge evaluation scores into the per-contest
// leaderboard. Samples are only ever ranked against samples of the same
// contest; the grouping key carries the contest id end to end.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/global-partner-dev/cocoa-judging/internal/app/scoring"
	"github.com/global-partner-dev/cocoa-judging/internal/domain"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/ids"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/metrics"
)

var ErrContestNotFound = errors.New("contest not found")

// DefaultTopN bounds the published leaderboard view.
const DefaultTopN = 10

// Aggregator recomputes and serves contest leaderboards. Recompute is
// idempotent: the same evaluation set always produces the same ranks, so
// overlapping recompute attempts resolve by last-commit-wins.
type Aggregator struct {
	contests   domain.ContestRepository
	evals      domain.EvaluationRepository
	results    domain.TopResultRepository
	ids        *ids.Generator
	outlierCfg scoring.OutlierConfig
}

func NewAggregator(
	contests domain.ContestRepository,
	evals domain.EvaluationRepository,
	results domain.TopResultRepository,
	idsGen *ids.Generator,
	cfg scoring.OutlierConfig,
) *Aggregator {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Aggregator{
		contests:   contests,
		evals:      evals,
		results:    results,
		ids:        idsGen,
		outlierCfg: cfg,
	}
}

// Recompute rebuilds one contest's leaderboard from its approved evaluations
// and replaces the stored rows atomically. A failed replace leaves the
// previously published ranking intact.
func (a *Aggregator) Recompute(ctx context.Context, contestID domain.ContestID) ([]domain.TopResult, error) {
	start := time.Now()

	if _, err := a.contests.FindByID(ctx, contestID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, err
	}

	scores, err := a.evals.ApprovedScoresByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("ranking: load scores for %s: %w", contestID, err)
	}

	ranked := a.rank(contestID, scores)

	if err := a.results.ReplaceForContest(ctx, contestID, ranked); err != nil {
		return nil, fmt.Errorf("ranking: replace results for %s: %w", contestID, err)
	}

	outliers := 0
	for _, r := range ranked {
		outliers += r.OutlierCount
	}
	metrics.IncRecompute()
	metrics.AddOutliersDetected(outliers)
	metrics.ObserveRecomputeDuration(time.Since(start).Seconds())

	return ranked, nil
}

// RecomputeAll rebuilds every contest's leaderboard, each inside its own
// transaction so one failing contest never corrupts another.
func (a *Aggregator) RecomputeAll(ctx context.Context) error {
	contestIDs, err := a.contests.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range contestIDs {
		if _, err := a.Recompute(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// TopN serves the persisted projection; no recomputation happens on read.
func (a *Aggregator) TopN(ctx context.Context, contestID domain.ContestID, limit int) ([]domain.TopResult, error) {
	if _, err := a.contests.FindByID(ctx, contestID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTopN
	}
	return a.results.ListByContest(ctx, contestID, limit)
}

// rank groups scores by sample, filters each group and assigns dense ranks.
// Ties on the filtered score order by latest contributing evaluation first,
// then by sample id, so the ordering is total and recomputes deterministic.
func (a *Aggregator) rank(contestID domain.ContestID, scores []domain.SampleScore) []domain.TopResult {
	type group struct {
		entries []scoring.ScoreEntry
		latest  time.Time
	}

	groups := make(map[domain.SampleID]*group)
	order := make([]domain.SampleID, 0)
	for _, s := range scores {
		g, ok := groups[s.SampleID]
		if !ok {
			g = &group{}
			groups[s.SampleID] = g
			order = append(order, s.SampleID)
		}
		g.entries = append(g.entries, scoring.ScoreEntry{EvaluationID: s.EvaluationID, Score: s.Score})
		if s.SubmittedAt.After(g.latest) {
			g.latest = s.SubmittedAt
		}
	}

	results := make([]domain.TopResult, 0, len(groups))
	for _, sampleID := range order {
		g := groups[sampleID]
		filtered := scoring.FilterOutliers(g.entries, a.outlierCfg)
		results = append(results, domain.TopResult{
			ID:              a.ids.New(),
			ContestID:       contestID,
			SampleID:        sampleID,
			Score:           filtered.FilteredAverage,
			OriginalScore:   filtered.OriginalAverage,
			EvaluationCount: len(g.entries),
			OutlierCount:    filtered.OutlierCount,
			LastEvaluatedAt: g.latest,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].LastEvaluatedAt.Equal(results[j].LastEvaluatedAt) {
			return results[i].LastEvaluatedAt.After(results[j].LastEvaluatedAt)
		}
		return results[i].SampleID < results[j].SampleID
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
