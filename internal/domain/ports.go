package domain

import (
	"context"
	"time"
)

type ContestRepository interface {
	Create(ctx context.Context, c Contest) error
	FindByID(ctx context.Context, id ContestID) (Contest, error)
	List(ctx context.Context) ([]Contest, error)
	ListIDs(ctx context.Context) ([]ContestID, error)
	CountActiveByDirector(ctx context.Context, director UserID, at time.Time) (int64, error)
}

type SampleRepository interface {
	Create(ctx context.Context, s Sample) error
	FindByID(ctx context.Context, id SampleID) (Sample, error)
	UpdateStatus(ctx context.Context, id SampleID, from, to SampleStatus) error
	ListByContest(ctx context.Context, contestID ContestID) ([]Sample, error)
}

type PhysicalEvaluationRepository interface {
	Upsert(ctx context.Context, pe PhysicalEvaluation) error
	FindBySample(ctx context.Context, sampleID SampleID) (PhysicalEvaluation, error)
}

type EvaluationRepository interface {
	// Upsert inserts or replaces the row keyed by (sample, judge, stage).
	Upsert(ctx context.Context, e Evaluation) error
	FindBySampleAndJudge(ctx context.Context, sampleID SampleID, judgeID UserID, stage EvaluationStage) (Evaluation, error)
	// ApprovedScoresByContest returns one row per approved evaluation in the
	// contest, the raw material for a ranking recompute.
	ApprovedScoresByContest(ctx context.Context, contestID ContestID) ([]SampleScore, error)
	CountBySample(ctx context.Context, contestID ContestID) (map[SampleID]int64, error)
}

type TopResultRepository interface {
	// ReplaceForContest swaps the contest's leaderboard for the given rows in
	// a single transaction; on error the previous rows survive untouched.
	ReplaceForContest(ctx context.Context, contestID ContestID, results []TopResult) error
	ListByContest(ctx context.Context, contestID ContestID, limit int) ([]TopResult, error)
}

// RecomputeQueue decouples evaluation writes from ranking recomputes.
type RecomputeQueue interface {
	PublishRecompute(ctx context.Context, contestID ContestID) error
	ConsumeRecomputes(ctx context.Context, handler func(context.Context, ContestID) error) error
}

type Counter interface {
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	GetAll(ctx context.Context, keys []string) (map[string]int64, error)
}

// Throttle guards the public submission endpoint against abusive judges.
type Throttle interface {
	Allow(ctx context.Context, judgeID UserID, contestID ContestID) error
}

type Clock interface {
	Now() time.Time
}
