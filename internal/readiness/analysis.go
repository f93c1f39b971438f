package readiness

import (
	"math"
	"sort"
	"time"

	"github.com/ZertGraf/pr-readiness/internal/domain"
)

type ReviewerActivity struct {
	Login         string             `json:"login"`
	Reviews       int                `json:"reviews"`
	Comments      int                `json:"review_comments"`
	LatestState   domain.ReviewState `json:"latest_state,omitempty"`
	FirstReviewAt *time.Time         `json:"first_review_at,omitempty"`
	LastReviewAt  *time.Time         `json:"last_review_at,omitempty"`
}

// ReviewAnalysis describes how the review of a pull request went.
type ReviewAnalysis struct {
	Reviewers        []ReviewerActivity `json:"reviewers"`
	TotalReviews     int                `json:"total_reviews"`
	TotalComments    int                `json:"total_comments"`
	Approvals        int                `json:"approvals"`
	ChangesRequested int                `json:"changes_requested"`
	// ReviewRounds is the number of change requests.
	ReviewRounds            int    `json:"review_rounds"`
	CommitsAfterFirstReview int    `json:"commits_after_first_review"`
	TimeToFirstReviewSecs   *int64 `json:"time_to_first_review_seconds"`
	ResponseRatePercent     int    `json:"response_rate"`
}

// AnalyzeReviews derives review statistics from a timeline. Verdicts use the
// latest review of each reviewer, as the record does.
func AnalyzeReviews(t *domain.Timeline) ReviewAnalysis {
	var (
		analysis    ReviewAnalysis
		reviews     []domain.Review
		firstReview time.Time
		activity    = make(map[string]*ReviewerActivity)
	)

	reviewer := func(login string) *ReviewerActivity {
		a, ok := activity[login]
		if !ok {
			a = &ReviewerActivity{Login: login}
			activity[login] = a
		}
		return a
	}

	for i, e := range t.Events {
		switch e.Type {
		case domain.EventReview:
			analysis.TotalReviews++
			if e.State == domain.ReviewStateChangesRequested {
				analysis.ReviewRounds++
			}
			if firstReview.IsZero() {
				firstReview = e.At
			}
			reviews = append(reviews, domain.Review{ID: int64(i), Reviewer: e.Actor, State: e.State, SubmittedAt: e.At})

			a := reviewer(e.Actor)
			a.Reviews++
			at := e.At
			if a.FirstReviewAt == nil {
				a.FirstReviewAt = &at
			}
			a.LastReviewAt = &at

		case domain.EventReviewComment:
			analysis.TotalComments++
			reviewer(e.Actor).Comments++

		case domain.EventComment:
			analysis.TotalComments++

		case domain.EventCommit:
			if !firstReview.IsZero() && e.At.After(firstReview) {
				analysis.CommitsAfterFirstReview++
			}
		}
	}

	latest := LatestReviews(reviews)
	for login, r := range latest {
		reviewer(login).LatestState = r.State
	}

	summary := SummarizeReviews(reviews)
	analysis.Approvals = summary.Approvals
	analysis.ChangesRequested = summary.ChangesRequested
	if summary.Reviewers > 0 {
		decisive := summary.Approvals + summary.ChangesRequested
		analysis.ResponseRatePercent = int(math.Round(float64(decisive) * 100 / float64(summary.Reviewers)))
	}

	if !firstReview.IsZero() && !t.OpenedAt.IsZero() {
		secs := int64(firstReview.Sub(t.OpenedAt).Seconds())
		analysis.TimeToFirstReviewSecs = &secs
	}

	analysis.Reviewers = make([]ReviewerActivity, 0, len(activity))
	for _, a := range activity {
		analysis.Reviewers = append(analysis.Reviewers, *a)
	}
	sort.Slice(analysis.Reviewers, func(i, j int) bool {
		return analysis.Reviewers[i].Login < analysis.Reviewers[j].Login
	})

	return analysis
}
