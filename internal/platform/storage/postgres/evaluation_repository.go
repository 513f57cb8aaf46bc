package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// EvaluationRepository stores judge evaluations and exposes the aggregate
// reads the ranking recompute runs on.
type EvaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Upsert enforces one evaluation per (sample, judge, stage) at the storage
// level: a resubmission replaces the previous row atomically instead of
// racing an insert-then-check.
func (r *EvaluationRepository) Upsert(ctx context.Context, e domain.Evaluation) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sample_id"}, {Name: "judge_id"}, {Name: "stage"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"category",
				"attributes",
				"overall_quality",
				"verdict",
				"submitted_at",
			}),
		}).
		Create(&e).Error; err != nil {
		return fmt.Errorf("gorm evaluations: upsert: %w", err)
	}
	return nil
}

func (r *EvaluationRepository) FindBySampleAndJudge(ctx context.Context, sampleID domain.SampleID, judgeID domain.UserID, stage domain.EvaluationStage) (domain.Evaluation, error) {
	var e domain.Evaluation
	if err := r.db.WithContext(ctx).
		First(&e, "sample_id = ? AND judge_id = ? AND stage = ?", sampleID, judgeID, stage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Evaluation{}, domain.ErrNotFound
		}
		return domain.Evaluation{}, fmt.Errorf("gorm evaluations: find by sample and judge: %w", err)
	}
	return e, nil
}

func (r *EvaluationRepository) ApprovedScoresByContest(ctx context.Context, contestID domain.ContestID) ([]domain.SampleScore, error) {
	type row struct {
		ID             string
		SampleID       string
		ContestID      string
		OverallQuality float64
		SubmittedAt    time.Time
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&domain.Evaluation{}).
		Select("id, sample_id, contest_id, overall_quality, submitted_at").
		Where("contest_id = ? AND verdict = ?", contestID, domain.VerdictApproved).
		// Stable read order keeps recomputes byte-for-byte reproducible.
		Order("sample_id ASC, judge_id ASC, stage ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm evaluations: approved scores: %w", err)
	}

	scores := make([]domain.SampleScore, len(rows))
	for i, item := range rows {
		scores[i] = domain.SampleScore{
			EvaluationID: domain.EvaluationID(item.ID),
			SampleID:     domain.SampleID(item.SampleID),
			ContestID:    domain.ContestID(item.ContestID),
			Score:        item.OverallQuality,
			SubmittedAt:  item.SubmittedAt,
		}
	}
	return scores, nil
}

func (r *EvaluationRepository) CountBySample(ctx context.Context, contestID domain.ContestID) (map[domain.SampleID]int64, error) {
	type row struct {
		SampleID string
		Total    int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&domain.Evaluation{}).
		Select("sample_id as sample_id, COUNT(*) as total").
		Where("contest_id = ?", contestID).
		Group("sample_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm evaluations: count by sample: %w", err)
	}

	counts := make(map[domain.SampleID]int64, len(rows))
	for _, item := range rows {
		counts[domain.SampleID(item.SampleID)] = item.Total
	}
	return counts, nil
}

var _ domain.EvaluationRepository = (*EvaluationRepository)(nil)
