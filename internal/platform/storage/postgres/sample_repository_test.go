package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/global-partner-dev/cocoa-judging/internal/domain"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/ids"
)

func seedContestRow(t *testing.T, repo *ContestRepository, gen *ids.Generator) domain.ContestID {
	t.Helper()
	now := time.Now().UTC()
	contest := newContest(gen, "dir-1", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, repo.Create(context.Background(), contest))
	return contest.ID
}

func newSample(gen *ids.Generator, contestID domain.ContestID, code string, status domain.SampleStatus) domain.Sample {
	return domain.Sample{
		ID:           domain.SampleID(gen.New()),
		ContestID:    contestID,
		OwnerID:      domain.UserID(gen.New()),
		TrackingCode: code,
		Category:     domain.CategoryBean,
		Status:       status,
	}
}

func TestSampleRepository_Create_WhenValid_ShouldPersist(t *testing.T) {
	db := setupPostgres(t)
	repo := NewSampleRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	contestID := seedContestRow(t, NewContestRepository(db), gen)

	// Arrange
	sample := newSample(gen, contestID, "CC-AAAA0001", domain.StatusSubmitted)

	// Act
	err := repo.Create(ctx, sample)
	require.NoError(t, err)

	// Assert
	found, err := repo.FindByID(ctx, sample.ID)
	assert.NoError(t, err)
	assert.Equal(t, sample.TrackingCode, found.TrackingCode)
	assert.Equal(t, domain.StatusSubmitted, found.Status)
}

func TestSampleRepository_UpdateStatus_WhenCurrentMatches_ShouldTransition(t *testing.T) {
	db := setupPostgres(t)
	repo := NewSampleRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	contestID := seedContestRow(t, NewContestRepository(db), gen)

	sample := newSample(gen, contestID, "CC-AAAA0002", domain.StatusSubmitted)
	require.NoError(t, repo.Create(ctx, sample))

	// Act
	err := repo.UpdateStatus(ctx, sample.ID, domain.StatusSubmitted, domain.StatusReceived)

	// Assert
	assert.NoError(t, err)
	found, err := repo.FindByID(ctx, sample.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, found.Status)
}

func TestSampleRepository_UpdateStatus_WhenStale_ShouldReturnConflict(t *testing.T) {
	db := setupPostgres(t)
	repo := NewSampleRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	contestID := seedContestRow(t, NewContestRepository(db), gen)

	sample := newSample(gen, contestID, "CC-AAAA0003", domain.StatusReceived)
	require.NoError(t, repo.Create(ctx, sample))

	// Act: compare-and-set against an outdated current status
	err := repo.UpdateStatus(ctx, sample.ID, domain.StatusSubmitted, domain.StatusReceived)

	// Assert: the row is untouched
	assert.ErrorIs(t, err, domain.ErrConflict)
	found, findErr := repo.FindByID(ctx, sample.ID)
	assert.NoError(t, findErr)
	assert.Equal(t, domain.StatusReceived, found.Status)
}

func TestSampleRepository_ListByContest_WhenMultiple_ShouldOrderByTrackingCode(t *testing.T) {
	db := setupPostgres(t)
	repo := NewSampleRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	contests := NewContestRepository(db)
	contestID := seedContestRow(t, contests, gen)
	otherID := seedContestRow(t, contests, gen)

	require.NoError(t, repo.Create(ctx, newSample(gen, contestID, "CC-BBBB0002", domain.StatusSubmitted)))
	require.NoError(t, repo.Create(ctx, newSample(gen, contestID, "CC-AAAA0001", domain.StatusSubmitted)))
	require.NoError(t, repo.Create(ctx, newSample(gen, otherID, "CC-CCCC0003", domain.StatusSubmitted)))

	// Act
	samples, err := repo.ListByContest(ctx, contestID)

	// Assert
	assert.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "CC-AAAA0001", samples[0].TrackingCode)
	assert.Equal(t, "CC-BBBB0002", samples[1].TrackingCode)
}
