package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// ContestRepository maps contests to GORM tables.
type ContestRepository struct {
	db *gorm.DB
}

func NewContestRepository(db *gorm.DB) *ContestRepository {
	return &ContestRepository{db: db}
}

func (r *ContestRepository) Create(ctx context.Context, c domain.Contest) error {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return fmt.Errorf("gorm contests: insert: %w", err)
	}
	return nil
}

func (r *ContestRepository) FindByID(ctx context.Context, id domain.ContestID) (domain.Contest, error) {
	var c domain.Contest
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Contest{}, domain.ErrNotFound
		}
		return domain.Contest{}, fmt.Errorf("gorm contests: find by id: %w", err)
	}
	return c, nil
}

func (r *ContestRepository) List(ctx context.Context) ([]domain.Contest, error) {
	var contests []domain.Contest
	if err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&contests).Error; err != nil {
		return nil, fmt.Errorf("gorm contests: list: %w", err)
	}
	return contests, nil
}

func (r *ContestRepository) ListIDs(ctx context.Context) ([]domain.ContestID, error) {
	var ids []domain.ContestID
	if err := r.db.WithContext(ctx).
		Model(&domain.Contest{}).
		Order("start_date DESC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("gorm contests: list ids: %w", err)
	}
	return ids, nil
}

func (r *ContestRepository) CountActiveByDirector(ctx context.Context, director domain.UserID, at time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Contest{}).
		// Same window predicate the lifecycle gate derives status from.
		Where("director_id = ? AND start_date <= ? AND end_date >= ?", director, at, at).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("gorm contests: count active: %w", err)
	}
	return count, nil
}

var _ domain.ContestRepository = (*ContestRepository)(nil)
