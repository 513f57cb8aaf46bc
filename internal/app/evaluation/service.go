// Package evaluation implements the judging write path: physical screening
// submissions and sensory/final evaluation submissions, including the status
// preconditions tying the two together.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/global-partner-dev/cocoa-judging/internal/app/contest"
	"github.com/global-partner-dev/cocoa-judging/internal/app/physical"
	"github.com/global-partner-dev/cocoa-judging/internal/app/scoring"
	"github.com/global-partner-dev/cocoa-judging/internal/domain"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/ids"
)

var (
	ErrSampleNotFound    = errors.New("sample not found")
	ErrContestNotFound   = errors.New("contest not found")
	ErrContestClosed     = errors.New("contest is not active")
	ErrSampleNotApproved = errors.New("sample has not passed physical screening")
	ErrSampleNotPending  = errors.New("sample is not awaiting physical evaluation")
	ErrInvalidSubmission = errors.New("invalid submission")
)

// Recomputer triggers a ranking rebuild for one contest. Satisfied by the
// ranking aggregator; used for the synchronous fallback when no queue is
// configured.
type Recomputer interface {
	Recompute(ctx context.Context, contestID domain.ContestID) ([]domain.TopResult, error)
}

// PhysicalRequest is the director's screening submission for one sample.
type PhysicalRequest struct {
	SampleID     domain.SampleID       `json:"sample_id" validate:"required"`
	DirectorID   domain.UserID         `json:"director_id" validate:"required"`
	Measurements physical.Measurements `json:"measurements" validate:"required"`
}

// SubmitRequest is one judge's sensory or final evaluation of one sample.
// Exactly one of Chocolate/Cocoa must be set, matching the sample's category.
type SubmitRequest struct {
	SampleID  domain.SampleID              `json:"sample_id" validate:"required"`
	JudgeID   domain.UserID                `json:"judge_id" validate:"required"`
	Stage     domain.EvaluationStage       `json:"stage" validate:"required,oneof=sensory final"`
	Verdict   domain.Verdict               `json:"verdict" validate:"required,oneof=Approved Disqualified"`
	Chocolate *scoring.ChocolateAttributes `json:"chocolate,omitempty"`
	Cocoa     *scoring.CocoaBeanAttributes `json:"cocoa,omitempty"`
	Notes     string                       `json:"notes,omitempty"`
}

// SubmitResult echoes the derived score back to the caller. QualityAdvisory
// is only set for cocoa bean and liquor submissions; it is display-only and
// never enters persistence or ranking.
type SubmitResult struct {
	EvaluationID    domain.EvaluationID `json:"evaluation_id"`
	OverallQuality  float64             `json:"overall_quality"`
	QualityAdvisory *float64            `json:"quality_advisory,omitempty"`
}

// Service validates submissions, applies the pure scoring/screening functions
// and persists through repositories. Ranking recomputes are delegated to the
// queue when configured, otherwise run inline.
type Service struct {
	samples    domain.SampleRepository
	contests   domain.ContestRepository
	physicals  domain.PhysicalEvaluationRepository
	evals      domain.EvaluationRepository
	counter    domain.Counter
	queue      domain.RecomputeQueue
	throttle   domain.Throttle
	recomputer Recomputer
	clock      domain.Clock
	ids        *ids.Generator
	validate   *validator.Validate
	outlierCfg scoring.OutlierConfig
}

func NewService(
	samples domain.SampleRepository,
	contests domain.ContestRepository,
	physicals domain.PhysicalEvaluationRepository,
	evals domain.EvaluationRepository,
	counter domain.Counter,
	queue domain.RecomputeQueue,
	throttle domain.Throttle,
	recomputer Recomputer,
	clock domain.Clock,
	idsGen *ids.Generator,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		samples:    samples,
		contests:   contests,
		physicals:  physicals,
		evals:      evals,
		counter:    counter,
		queue:      queue,
		throttle:   throttle,
		recomputer: recomputer,
		clock:      clock,
		ids:        idsGen,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		outlierCfg: scoring.DefaultOutlierConfig(),
	}
}

// ReceiveSample marks a submitted sample as physically received.
func (s *Service) ReceiveSample(ctx context.Context, id domain.SampleID) error {
	return s.transition(ctx, id, domain.StatusSubmitted, domain.StatusReceived)
}

// ApproveSample is the director's sign-off after a passed screening, opening
// the sample for sensory judging.
func (s *Service) ApproveSample(ctx context.Context, id domain.SampleID) error {
	return s.transition(ctx, id, domain.StatusPhysicalEvaluation, domain.StatusApproved)
}

// SubmitPhysical runs the screening rules and upserts the result. A
// disqualified sample transitions to its terminal state; a passed one waits
// in physical_evaluation for director approval.
func (s *Service) SubmitPhysical(ctx context.Context, req PhysicalRequest) (physical.Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return physical.Result{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	sample, err := s.samples.FindByID(ctx, req.SampleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return physical.Result{}, ErrSampleNotFound
		}
		return physical.Result{}, err
	}

	// Corrective re-evaluation is allowed while the sample sits in
	// physical_evaluation; afterwards the record is immutable.
	if sample.Status != domain.StatusReceived && sample.Status != domain.StatusPhysicalEvaluation {
		return physical.Result{}, ErrSampleNotPending
	}

	result := physical.Evaluate(req.Measurements)

	pe, err := s.buildPhysicalRow(sample, req, result)
	if err != nil {
		return physical.Result{}, err
	}
	if err := s.physicals.Upsert(ctx, pe); err != nil {
		return physical.Result{}, err
	}

	target := domain.StatusPhysicalEvaluation
	if result.GlobalEvaluation == domain.PhysicalDisqualified {
		target = domain.StatusDisqualified
	}
	if sample.Status != target {
		if err := s.samples.UpdateStatus(ctx, sample.ID, sample.Status, target); err != nil {
			return physical.Result{}, err
		}
	}

	return result, nil
}

// SubmitEvaluation scores a judge's raw attributes and upserts the row keyed
// by (sample, judge, stage), so a resubmission replaces rather than
// duplicates.
func (s *Service) SubmitEvaluation(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	sample, err := s.samples.FindByID(ctx, req.SampleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SubmitResult{}, ErrSampleNotFound
		}
		return SubmitResult{}, err
	}

	if sample.Status != domain.StatusApproved && sample.Status != domain.StatusEvaluated {
		return SubmitResult{}, ErrSampleNotApproved
	}

	c, err := s.contests.FindByID(ctx, sample.ContestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SubmitResult{}, ErrContestNotFound
		}
		return SubmitResult{}, err
	}

	now := s.clock.Now()
	if contest.DeriveStatus(c.StartDate, c.EndDate, now) != contest.StatusActive {
		return SubmitResult{}, ErrContestClosed
	}

	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, req.JudgeID, sample.ContestID); err != nil {
			return SubmitResult{}, err
		}
	}

	overall, advisory, attrs, err := scoreForCategory(sample.Category, req)
	if err != nil {
		return SubmitResult{}, err
	}

	// A resubmission replaces the stored row, so only a first submission may
	// move the progress counters.
	_, findErr := s.evals.FindBySampleAndJudge(ctx, sample.ID, req.JudgeID, req.Stage)
	if findErr != nil && !errors.Is(findErr, domain.ErrNotFound) {
		return SubmitResult{}, findErr
	}
	firstSubmission := errors.Is(findErr, domain.ErrNotFound)

	eval := domain.Evaluation{
		ID:             domain.EvaluationID(s.ids.New()),
		SampleID:       sample.ID,
		ContestID:      sample.ContestID,
		JudgeID:        req.JudgeID,
		Stage:          req.Stage,
		Category:       sample.Category,
		Attributes:     attrs,
		OverallQuality: overall,
		Verdict:        req.Verdict,
		SubmittedAt:    now,
	}

	if err := s.evals.Upsert(ctx, eval); err != nil {
		return SubmitResult{}, err
	}

	if sample.Status == domain.StatusApproved {
		if err := s.samples.UpdateStatus(ctx, sample.ID, domain.StatusApproved, domain.StatusEvaluated); err != nil {
			return SubmitResult{}, err
		}
	}

	if s.counter != nil && firstSubmission {
		if _, err := s.counter.Increment(ctx, CounterKeyContestTotal(sample.ContestID), 1); err != nil {
			return SubmitResult{}, err
		}
		if _, err := s.counter.Increment(ctx, CounterKeySample(sample.ContestID, sample.ID), 1); err != nil {
			return SubmitResult{}, err
		}
	}

	if err := s.triggerRecompute(ctx, sample.ContestID); err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{EvaluationID: eval.ID, OverallQuality: overall, QualityAdvisory: advisory}, nil
}

// ProgressReport is the director's view of how far judging has come: total
// evaluations in the contest and the count per sample.
type ProgressReport struct {
	Total   int64                     `json:"total"`
	Samples map[domain.SampleID]int64 `json:"samples"`
}

// Progress reports how many evaluations each sample of a contest has
// received. With a counter backend configured the numbers come straight from
// Redis and cover every registered sample, zeros included; without one they
// are counted from the evaluations table.
func (s *Service) Progress(ctx context.Context, contestID domain.ContestID) (ProgressReport, error) {
	if _, err := s.contests.FindByID(ctx, contestID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ProgressReport{}, ErrContestNotFound
		}
		return ProgressReport{}, err
	}

	if s.counter == nil {
		counts, err := s.evals.CountBySample(ctx, contestID)
		if err != nil {
			return ProgressReport{}, err
		}
		report := ProgressReport{Samples: counts}
		for _, n := range counts {
			report.Total += n
		}
		return report, nil
	}

	total, err := s.counter.Get(ctx, CounterKeyContestTotal(contestID))
	if err != nil {
		return ProgressReport{}, err
	}

	samples, err := s.samples.ListByContest(ctx, contestID)
	if err != nil {
		return ProgressReport{}, err
	}
	keys := make([]string, len(samples))
	for i, smp := range samples {
		keys[i] = CounterKeySample(contestID, smp.ID)
	}
	raw, err := s.counter.GetAll(ctx, keys)
	if err != nil {
		return ProgressReport{}, err
	}
	counts := make(map[domain.SampleID]int64, len(samples))
	for i, smp := range samples {
		counts[smp.ID] = raw[keys[i]]
	}
	return ProgressReport{Total: total, Samples: counts}, nil
}

func (s *Service) triggerRecompute(ctx context.Context, contestID domain.ContestID) error {
	if s.queue != nil {
		// Async mode: the worker owns the recompute.
		return s.queue.PublishRecompute(ctx, contestID)
	}
	if s.recomputer != nil {
		if _, err := s.recomputer.Recompute(ctx, contestID); err != nil {
			return fmt.Errorf("evaluation: inline recompute: %w", err)
		}
	}
	return nil
}

func (s *Service) transition(ctx context.Context, id domain.SampleID, from, to domain.SampleStatus) error {
	sample, err := s.samples.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrSampleNotFound
		}
		return err
	}
	if sample.Status != from || !sample.Status.CanTransition(to) {
		return fmt.Errorf("%w: sample %s is %s", ErrSampleNotPending, id, sample.Status)
	}
	return s.samples.UpdateStatus(ctx, id, from, to)
}

func (s *Service) buildPhysicalRow(sample domain.Sample, req PhysicalRequest, result physical.Result) (domain.PhysicalEvaluation, error) {
	reasons, err := json.Marshal(result.DisqualificationReasons)
	if err != nil {
		return domain.PhysicalEvaluation{}, fmt.Errorf("evaluation: marshal reasons: %w", err)
	}
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return domain.PhysicalEvaluation{}, fmt.Errorf("evaluation: marshal warnings: %w", err)
	}
	aromas, err := json.Marshal(req.Measurements.UndesirableAromas)
	if err != nil {
		return domain.PhysicalEvaluation{}, fmt.Errorf("evaluation: marshal aromas: %w", err)
	}

	m := req.Measurements
	return domain.PhysicalEvaluation{
		ID:                      s.ids.New(),
		SampleID:                sample.ID,
		DirectorID:              req.DirectorID,
		Humidity:                m.Humidity,
		BrokenGrains:            m.BrokenGrains,
		FlatGrains:              m.FlatGrains,
		AffectedGrainsInsects:   m.AffectedGrainsInsects,
		PurpleBeans:             m.PurpleBeans,
		SlatyBeans:              m.SlatyBeans,
		InternalMoldyBeans:      m.InternalMoldyBeans,
		OverFermentedBeans:      m.OverFermentedBeans,
		WellFermentedBeans:      m.WellFermentedBeans,
		LightlyFermentedBeans:   m.LightlyFermentedBeans,
		HasUndesirableAromas:    m.HasUndesirableAromas,
		UndesirableAromas:       string(aromas),
		ViolatedGrains:          m.ViolatedGrains,
		GlobalEvaluation:        result.GlobalEvaluation,
		DisqualificationReasons: string(reasons),
		Warnings:                string(warnings),
	}, nil
}

func scoreForCategory(category domain.SampleCategory, req SubmitRequest) (float64, *float64, string, error) {
	switch category {
	case domain.CategoryChocolate:
		if req.Chocolate == nil {
			return 0, nil, "", fmt.Errorf("%w: chocolate attributes required for chocolate sample", ErrInvalidSubmission)
		}
		attrs, err := json.Marshal(req.Chocolate)
		if err != nil {
			return 0, nil, "", fmt.Errorf("evaluation: marshal attributes: %w", err)
		}
		return req.Chocolate.Score(), nil, string(attrs), nil
	case domain.CategoryBean, domain.CategoryLiquor:
		if req.Cocoa == nil {
			return 0, nil, "", fmt.Errorf("%w: cocoa attributes required for %s sample", ErrInvalidSubmission, category)
		}
		attrs, err := json.Marshal(req.Cocoa)
		if err != nil {
			return 0, nil, "", fmt.Errorf("evaluation: marshal attributes: %w", err)
		}
		advisory := req.Cocoa.QualityAdvisory()
		return req.Cocoa.Score(), &advisory, string(attrs), nil
	default:
		return 0, nil, "", fmt.Errorf("%w: unknown sample category %q", ErrInvalidSubmission, category)
	}
}
