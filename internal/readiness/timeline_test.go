package readiness

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

func timelineGitHub() *fakeGitHub {
	client := healthyGitHub()
	client.details.CreatedAt = t0
	client.reviews = []domain.Review{
		review(1, "bob", domain.ReviewStateChangesRequested, 2*time.Hour),
		review(2, "bob", domain.ReviewStateApproved, 5*time.Hour),
		review(3, "carol", domain.ReviewStatePending, 0),
	}
	client.commits = []domain.Commit{
		{SHA: "c1", Author: "alice", Message: "Add scorer\n\nlong body", CommittedAt: t0.Add(time.Hour)},
		{SHA: "c2", Author: "alice", Message: "Address review", CommittedAt: t0.Add(3 * time.Hour)},
	}
	client.comments = []domain.Comment{
		{ID: 10, Author: "carol", Body: "Looks useful", CreatedAt: t0.Add(4 * time.Hour)},
	}
	client.reviewComments = []domain.Comment{
		{ID: 20, Author: "bob", Body: "nit: rename", CreatedAt: t0.Add(2 * time.Hour)},
	}
	return client
}

func TestTimeline_OrdersEvents(t *testing.T) {
	tl, err := NewAggregator(timelineGitHub(), logger.Nop()).Timeline(context.Background(), testRef)
	require.NoError(t, err)

	var types []domain.TimelineEventType
	for _, e := range tl.Events {
		types = append(types, e.Type)
	}

	// the pending draft review is left out
	assert.Equal(t, []domain.TimelineEventType{
		domain.EventOpened,
		domain.EventCommit,
		domain.EventReview,
		domain.EventReviewComment,
		domain.EventCommit,
		domain.EventComment,
		domain.EventReview,
	}, types)

	assert.Equal(t, "Add scorer", tl.Events[1].Summary)
	assert.Equal(t, "c1", tl.Events[1].SHA)
	assert.Equal(t, domain.ReviewStateChangesRequested, tl.Events[2].State)
	assert.Equal(t, testRef.URL(), tl.PRURL)
	assert.Equal(t, t0, tl.OpenedAt)
}

func TestTimeline_MergedEventLast(t *testing.T) {
	client := timelineGitHub()
	client.details.State = domain.PRStateClosed
	client.details.IsMerged = true
	client.details.MergedAt = t0.Add(6 * time.Hour)

	tl, err := NewAggregator(client, logger.Nop()).Timeline(context.Background(), testRef)
	require.NoError(t, err)

	last := tl.Events[len(tl.Events)-1]
	assert.Equal(t, domain.EventMerged, last.Type)
	assert.Equal(t, t0.Add(6*time.Hour), last.At)
}

func TestTimeline_AnyFailureFails(t *testing.T) {
	client := timelineGitHub()
	client.commentsErr = &domain.UpstreamError{Kind: domain.ErrUpstreamRateLimited, Resource: domain.ResourceComments}

	tl, err := NewAggregator(client, logger.Nop()).Timeline(context.Background(), testRef)
	assert.Nil(t, tl)
	assert.ErrorIs(t, err, domain.ErrUpstreamRateLimited)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "first line", summarize("  first line  \nsecond"))
	assert.Equal(t, "", summarize(""))

	long := strings.Repeat("é", 120)
	got := summarize(long)
	assert.Equal(t, summaryRunes, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
