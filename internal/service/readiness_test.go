package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/readiness"
)

func TestReadiness_ScoresStoredRecord(t *testing.T) {
	svc, repo, _ := newTestService(t, defaultPolicy(), 0)
	ctx := context.Background()

	pr := stored(openPR(), 4)
	repo.On("GetByID", ctx, int64(4)).Return(pr, nil)

	report, err := svc.Readiness(ctx, 4, 0)
	require.NoError(t, err)

	// ci 80, review 100, response 100
	assert.Equal(t, 92, report.Overall)
	assert.Equal(t, readiness.StatusMergeReady, report.Status)
	assert.Equal(t, int64(4), report.PRID)
	assert.Equal(t, leafURL, report.PRURL)
	assert.Empty(t, report.MissingData)
}

func TestReadiness_ConversationPenalty(t *testing.T) {
	svc, repo, _ := newTestService(t, defaultPolicy(), 0)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(4)).Return(stored(openPR(), 4), nil)

	report, err := svc.Readiness(ctx, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 77, report.Overall)
	assert.Equal(t, 15, report.Penalty)
	assert.Equal(t, readiness.StatusNeedsAttention, report.Status)
}

func TestReadiness_MissingDataIsReported(t *testing.T) {
	svc, repo, _ := newTestService(t, defaultPolicy(), 0)
	ctx := context.Background()

	pr := stored(openPR(), 4)
	pr.ChecksPassed, pr.ChecksFailed = 0, 0
	pr.MissingData = []domain.Resource{domain.ResourceChecks}
	repo.On("GetByID", ctx, int64(4)).Return(pr, nil)

	report, err := svc.Readiness(ctx, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.Resource{domain.ResourceChecks}, report.MissingData)
	assert.Equal(t, readiness.ConfidenceUnknown, report.CI.Confidence)
}

func TestReadiness_NegativeConversations(t *testing.T) {
	svc, _, _ := newTestService(t, defaultPolicy(), 0)

	_, err := svc.Readiness(context.Background(), 4, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidData)
}

func TestReadiness_UnknownRecord(t *testing.T) {
	svc, repo, _ := newTestService(t, defaultPolicy(), 0)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrPRNotFound)

	_, err := svc.Readiness(ctx, 9, 0)
	assert.ErrorIs(t, err, domain.ErrPRNotFound)
}

func TestReadiness_CachedUntilRefresh(t *testing.T) {
	svc, repo, agg := newTestService(t, defaultPolicy(), time.Minute)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(4)).Return(stored(openPR(), 4), nil)

	first, err := svc.Readiness(ctx, 4, 0)
	require.NoError(t, err)
	second, err := svc.Readiness(ctx, 4, 0)
	require.NoError(t, err)
	assert.Same(t, first, second)
	repo.AssertNumberOfCalls(t, "GetByID", 1)

	// a different conversation count is its own entry
	_, err = svc.Readiness(ctx, 4, 2)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "GetByID", 2)

	fresh := openPR()
	agg.On("Aggregate", ctx, leafRef).Return(fresh, nil)
	repo.On("Upsert", ctx, fresh).Return(stored(fresh, 4), nil)

	_, err = svc.RefreshPR(ctx, 4)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "GetByID", 3)

	third, err := svc.Readiness(ctx, 4, 0)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	repo.AssertNumberOfCalls(t, "GetByID", 4)
}

func TestReadiness_CacheExpires(t *testing.T) {
	svc, repo, _ := newTestService(t, defaultPolicy(), 20*time.Millisecond)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(4)).Return(stored(openPR(), 4), nil)

	_, err := svc.Readiness(ctx, 4, 0)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = svc.Readiness(ctx, 4, 0)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestCalculate(t *testing.T) {
	svc, _, _ := newTestService(t, defaultPolicy(), 0)

	score := svc.Calculate(readiness.Inputs{
		CIPassed:            10,
		Approvals:           2,
		ResponseRatePercent: 90,
	})
	assert.Equal(t, 98, score.Overall)
	assert.Equal(t, readiness.StatusMergeReady, score.Status)
}
