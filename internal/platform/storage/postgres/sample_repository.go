package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
)

// SampleRepository persists samples and their workflow status.
type SampleRepository struct {
	db *gorm.DB
}

func NewSampleRepository(db *gorm.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Create(ctx context.Context, s domain.Sample) error {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return fmt.Errorf("gorm samples: insert: %w", err)
	}
	return nil
}

func (r *SampleRepository) FindByID(ctx context.Context, id domain.SampleID) (domain.Sample, error) {
	var s domain.Sample
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Sample{}, domain.ErrNotFound
		}
		return domain.Sample{}, fmt.Errorf("gorm samples: find by id: %w", err)
	}
	return s, nil
}

// UpdateStatus is a compare-and-set on the status column so concurrent
// transitions cannot skip workflow states.
func (r *SampleRepository) UpdateStatus(ctx context.Context, id domain.SampleID, from, to domain.SampleStatus) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Sample{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("gorm samples: update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("gorm samples: status %s -> %s: %w", from, to, domain.ErrConflict)
	}
	return nil
}

func (r *SampleRepository) ListByContest(ctx context.Context, contestID domain.ContestID) ([]domain.Sample, error) {
	var samples []domain.Sample
	if err := r.db.WithContext(ctx).
		// Ordering by tracking code keeps listings predictable for reports.
		Where("contest_id = ?", contestID).
		Order("tracking_code ASC").
		Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("gorm samples: list by contest: %w", err)
	}
	return samples, nil
}

var _ domain.SampleRepository = (*SampleRepository)(nil)
