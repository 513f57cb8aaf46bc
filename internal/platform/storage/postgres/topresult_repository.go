package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// TopResultRepository owns the derived leaderboard projection.
type TopResultRepository struct {
	db *gorm.DB
}

func NewTopResultRepository(db *gorm.DB) *TopResultRepository {
	return &TopResultRepository{db: db}
}

// ReplaceForContest swaps the contest's rows inside one transaction. If any
// insert fails the delete rolls back too, so readers never observe a
// half-updated ranking.
func (r *TopResultRepository) ReplaceForContest(ctx context.Context, contestID domain.ContestID, results []domain.TopResult) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contest_id = ?", contestID).Delete(&domain.TopResult{}).Error; err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		return tx.Create(&results).Error
	})
	if err != nil {
		return fmt.Errorf("gorm top results: replace for contest: %w", err)
	}
	return nil
}

func (r *TopResultRepository) ListByContest(ctx context.Context, contestID domain.ContestID, limit int) ([]domain.TopResult, error) {
	var results []domain.TopResult
	q := r.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("rank ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("gorm top results: list by contest: %w", err)
	}
	return results, nil
}

var _ domain.TopResultRepository = (*TopResultRepository)(nil)
