package readiness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

func TestAnalyzeReviews(t *testing.T) {
	tl, err := NewAggregator(timelineGitHub(), logger.Nop()).Timeline(context.Background(), testRef)
	require.NoError(t, err)

	a := AnalyzeReviews(tl)

	assert.Equal(t, 2, a.TotalReviews)
	assert.Equal(t, 2, a.TotalComments)
	assert.Equal(t, 1, a.Approvals)
	assert.Equal(t, 0, a.ChangesRequested)
	assert.Equal(t, 1, a.ReviewRounds)
	assert.Equal(t, 1, a.CommitsAfterFirstReview)
	assert.Equal(t, 100, a.ResponseRatePercent)

	require.NotNil(t, a.TimeToFirstReviewSecs)
	assert.Equal(t, int64((2 * time.Hour).Seconds()), *a.TimeToFirstReviewSecs)

	require.Len(t, a.Reviewers, 1)
	bob := a.Reviewers[0]
	assert.Equal(t, "bob", bob.Login)
	assert.Equal(t, 2, bob.Reviews)
	assert.Equal(t, 1, bob.Comments)
	assert.Equal(t, domain.ReviewStateApproved, bob.LatestState)
	assert.Equal(t, t0.Add(2*time.Hour), *bob.FirstReviewAt)
	assert.Equal(t, t0.Add(5*time.Hour), *bob.LastReviewAt)
}

func TestAnalyzeReviews_NoReviews(t *testing.T) {
	a := AnalyzeReviews(&domain.Timeline{
		OpenedAt: t0,
		Events: []domain.TimelineEvent{
			{Type: domain.EventOpened, Actor: "alice", At: t0},
			{Type: domain.EventCommit, Actor: "alice", At: t0.Add(time.Minute)},
		},
	})

	assert.Zero(t, a.TotalReviews)
	assert.Zero(t, a.CommitsAfterFirstReview)
	assert.Nil(t, a.TimeToFirstReviewSecs)
	assert.Empty(t, a.Reviewers)
	assert.Zero(t, a.ResponseRatePercent)
}
