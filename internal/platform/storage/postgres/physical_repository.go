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

// PhysicalEvaluationRepository keeps the 1:1 screening record per sample.
type PhysicalEvaluationRepository struct {
	db *gorm.DB
}

func NewPhysicalEvaluationRepository(db *gorm.DB) *PhysicalEvaluationRepository {
	return &PhysicalEvaluationRepository{db: db}
}

// Upsert inserts or, on a corrective re-evaluation, replaces the row keyed by
// sample_id. The original row's id and created_at survive the update.
func (r *PhysicalEvaluationRepository) Upsert(ctx context.Context, pe domain.PhysicalEvaluation) error {
	pe.UpdatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sample_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"director_id",
				"humidity",
				"broken_grains",
				"flat_grains",
				"affected_grains_insects",
				"purple_beans",
				"slaty_beans",
				"internal_moldy_beans",
				"over_fermented_beans",
				"well_fermented_beans",
				"lightly_fermented_beans",
				"has_undesirable_aromas",
				"undesirable_aromas",
				"violated_grains",
				"global_evaluation",
				"disqualification_reasons",
				"warnings",
				"updated_at",
			}),
		}).
		Create(&pe).Error; err != nil {
		return fmt.Errorf("gorm physical evaluations: upsert: %w", err)
	}
	return nil
}

func (r *PhysicalEvaluationRepository) FindBySample(ctx context.Context, sampleID domain.SampleID) (domain.PhysicalEvaluation, error) {
	var pe domain.PhysicalEvaluation
	if err := r.db.WithContext(ctx).First(&pe, "sample_id = ?", sampleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PhysicalEvaluation{}, domain.ErrNotFound
		}
		return domain.PhysicalEvaluation{}, fmt.Errorf("gorm physical evaluations: find by sample: %w", err)
	}
	return pe, nil
}

var _ domain.PhysicalEvaluationRepository = (*PhysicalEvaluationRepository)(nil)
