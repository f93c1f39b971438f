package readiness

import (
	"github.com/ZertGraf/pr-readiness/internal/domain"
)

// ReviewSummary is the reduction of a review list to per-reviewer verdicts.
type ReviewSummary struct {
	Status           domain.ReviewStatus
	Approvals        int
	ChangesRequested int
	Reviewers        int
}

// LatestReviews keeps the most recent review of every reviewer.
// Ties on submission time are broken by review id so the result does not
// depend on input order.
func LatestReviews(reviews []domain.Review) map[string]domain.Review {
	latest := make(map[string]domain.Review, len(reviews))
	for _, r := range reviews {
		if r.Reviewer == "" {
			continue
		}
		cur, ok := latest[r.Reviewer]
		if !ok || newerReview(r, cur) {
			latest[r.Reviewer] = r
		}
	}
	return latest
}

func newerReview(a, b domain.Review) bool {
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.After(b.SubmittedAt)
	}
	return a.ID > b.ID
}

// SummarizeReviews applies the precedence changes_requested > approved > pending > none
// over each reviewer's latest review.
func SummarizeReviews(reviews []domain.Review) ReviewSummary {
	latest := LatestReviews(reviews)

	summary := ReviewSummary{Reviewers: len(latest)}
	for _, r := range latest {
		switch r.State {
		case domain.ReviewStateApproved:
			summary.Approvals++
		case domain.ReviewStateChangesRequested:
			summary.ChangesRequested++
		}
	}

	switch {
	case summary.ChangesRequested > 0:
		summary.Status = domain.ReviewChangesRequested
	case summary.Approvals > 0:
		summary.Status = domain.ReviewApproved
	case summary.Reviewers > 0:
		summary.Status = domain.ReviewPending
	default:
		summary.Status = domain.ReviewNone
	}

	return summary
}
