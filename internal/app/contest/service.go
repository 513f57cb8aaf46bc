package contest

import (
	"context"
	"errors"
	"fmt"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/ids"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/tracking"
)

var (
	ErrInvalidContest      = errors.New("invalid contest")
	ErrContestNotFound     = errors.New("contest not found")
	ErrDirectorHasActive   = errors.New("director already runs an active contest")
	ErrInvalidSample       = errors.New("invalid sample")
	ErrContestNotAccepting = errors.New("contest is not accepting samples")
)

// ContestView pairs a stored contest with its derived status for read APIs.
type ContestView struct {
	domain.Contest
	Status Status `json:"status"`
}

// Service owns contest creation and sample registration.
type Service struct {
	contests domain.ContestRepository
	samples  domain.SampleRepository
	clock    domain.Clock
	ids      *ids.Generator
	codes    *tracking.Generator
}

func NewService(
	contests domain.ContestRepository,
	samples domain.SampleRepository,
	clock domain.Clock,
	idsGen *ids.Generator,
	codes *tracking.Generator,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	if codes == nil {
		codes = tracking.NewGenerator()
	}
	return &Service{
		contests: contests,
		samples:  samples,
		clock:    clock,
		ids:      idsGen,
		codes:    codes,
	}
}

// CreateContest validates the date window and enforces the one-active-contest
// rule per director before persisting.
func (s *Service) CreateContest(ctx context.Context, c domain.Contest) (domain.Contest, error) {
	if c.Name == "" {
		return domain.Contest{}, fmt.Errorf("%w: name required", ErrInvalidContest)
	}
	if c.DirectorID == "" {
		return domain.Contest{}, fmt.Errorf("%w: director required", ErrInvalidContest)
	}
	now := s.clock.Now()
	if c.StartDate.IsZero() {
		c.StartDate = now
	}
	if c.EndDate.IsZero() || c.EndDate.Before(c.StartDate) {
		return domain.Contest{}, fmt.Errorf("%w: invalid date window", ErrInvalidContest)
	}

	// The check only matters when the new contest would itself be active now.
	if DeriveStatus(c.StartDate, c.EndDate, now) == StatusActive {
		active, err := s.contests.CountActiveByDirector(ctx, c.DirectorID, now)
		if err != nil {
			return domain.Contest{}, err
		}
		if active > 0 {
			return domain.Contest{}, ErrDirectorHasActive
		}
	}

	c.ID = domain.ContestID(s.ids.New())
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.contests.Create(ctx, c); err != nil {
		return domain.Contest{}, err
	}
	return c, nil
}

// ListContests returns every contest with its derived status attached.
func (s *Service) ListContests(ctx context.Context) ([]ContestView, error) {
	contests, err := s.contests.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	views := make([]ContestView, len(contests))
	for i, c := range contests {
		views[i] = ContestView{
			Contest: c,
			Status:  DeriveStatus(c.StartDate, c.EndDate, now),
		}
	}
	return views, nil
}

// RegisterSample creates a sample in "submitted" state with a fresh tracking
// code. Samples may only enter contests that are not yet completed.
func (s *Service) RegisterSample(ctx context.Context, sample domain.Sample) (domain.Sample, error) {
	if sample.ContestID == "" || sample.OwnerID == "" {
		return domain.Sample{}, fmt.Errorf("%w: contest and owner required", ErrInvalidSample)
	}
	switch sample.Category {
	case domain.CategoryBean, domain.CategoryLiquor, domain.CategoryChocolate:
	default:
		return domain.Sample{}, fmt.Errorf("%w: unknown category %q", ErrInvalidSample, sample.Category)
	}

	c, err := s.contests.FindByID(ctx, sample.ContestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Sample{}, ErrContestNotFound
		}
		return domain.Sample{}, err
	}

	now := s.clock.Now()
	if DeriveStatus(c.StartDate, c.EndDate, now) == StatusCompleted {
		return domain.Sample{}, ErrContestNotAccepting
	}

	sample.ID = domain.SampleID(s.ids.New())
	sample.TrackingCode = s.codes.New()
	sample.Status = domain.StatusSubmitted
	sample.CreatedAt = now
	sample.UpdatedAt = now

	if err := s.samples.Create(ctx, sample); err != nil {
		return domain.Sample{}, err
	}
	return sample, nil
}
