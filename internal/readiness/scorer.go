package readiness

import (
	"math"

	"github.com/ZertGraf/pr-readiness/internal/domain"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"

	// ConfidenceUnknown marks a sub-score whose source data could not be fetched.
	ConfidenceUnknown Confidence = "Unknown"
)

type Status string

const (
	StatusMergeReady     Status = "Merge Ready"
	StatusNeedsAttention Status = "Needs Attention"
	StatusNotReady       Status = "Not Ready"
)

const (
	ciWeight       = 40
	reviewWeight   = 40
	responseWeight = 20

	conversationPenalty = 3

	mergeReadyThreshold     = 80
	needsAttentionThreshold = 60
)

type Inputs struct {
	CIPassed                int `json:"ci_passed"`
	CIFailed                int `json:"ci_failed"`
	Approvals               int `json:"approvals"`
	ChangesRequested        int `json:"changes_requested"`
	UnresolvedConversations int `json:"unresolved_conversations"`
	ResponseRatePercent     int `json:"response_rate"`
}

type SubScore struct {
	Score      int        `json:"score"`
	Confidence Confidence `json:"confidence"`
}

type Score struct {
	Overall  int      `json:"overall_score"`
	Status   Status   `json:"overall_status"`
	CI       SubScore `json:"ci"`
	Review   SubScore `json:"review"`
	Response SubScore `json:"response"`
	Penalty  int      `json:"conversation_penalty"`
	Inputs   Inputs   `json:"inputs"`
}

// Calculate computes the weighted readiness score. It never fails: negative
// counts are treated as zero and the response rate is clamped to 0..100.
func Calculate(in Inputs) Score {
	in = in.normalized()

	ci := ciScore(in.CIPassed, in.CIFailed)
	review := reviewScore(in.Approvals, in.ChangesRequested)
	response := responseScore(in.ResponseRatePercent)

	weighted := int(math.Round(float64(ci.Score*ciWeight+review.Score*reviewWeight+response.Score*responseWeight) / 100))
	penalty := in.UnresolvedConversations * conversationPenalty
	overall := min(max(weighted-penalty, 0), 100)

	return Score{
		Overall:  overall,
		Status:   statusFor(overall),
		CI:       ci,
		Review:   review,
		Response: response,
		Penalty:  penalty,
		Inputs:   in,
	}
}

func (in Inputs) normalized() Inputs {
	in.CIPassed = max(in.CIPassed, 0)
	in.CIFailed = max(in.CIFailed, 0)
	in.Approvals = max(in.Approvals, 0)
	in.ChangesRequested = max(in.ChangesRequested, 0)
	in.UnresolvedConversations = max(in.UnresolvedConversations, 0)
	in.ResponseRatePercent = min(max(in.ResponseRatePercent, 0), 100)
	return in
}

// zero checks is a low confidence failure signal, not a neutral one
func ciScore(passed, failed int) SubScore {
	total := passed + failed
	if total == 0 {
		return SubScore{Score: 0, Confidence: ConfidenceLow}
	}
	return SubScore{
		Score:      int(math.Round(float64(passed) * 100 / float64(total))),
		Confidence: ConfidenceHigh,
	}
}

func reviewScore(approvals, changesRequested int) SubScore {
	switch {
	case approvals > 0 && changesRequested == 0:
		return SubScore{Score: 100, Confidence: ConfidenceHigh}
	case approvals > 0 && changesRequested > 0:
		return SubScore{Score: 50, Confidence: ConfidenceMedium}
	case changesRequested > 0:
		return SubScore{Score: 0, Confidence: ConfidenceHigh}
	default:
		return SubScore{Score: 0, Confidence: ConfidenceMedium}
	}
}

func responseScore(rate int) SubScore {
	switch {
	case rate >= 80:
		return SubScore{Score: rate, Confidence: ConfidenceHigh}
	case rate >= 50:
		return SubScore{Score: rate, Confidence: ConfidenceMedium}
	default:
		return SubScore{Score: rate, Confidence: ConfidenceLow}
	}
}

func statusFor(overall int) Status {
	switch {
	case overall >= mergeReadyThreshold:
		return StatusMergeReady
	case overall >= needsAttentionThreshold:
		return StatusNeedsAttention
	default:
		return StatusNotReady
	}
}

// InputsFromRecord derives scorer inputs from a stored pull request. The
// response rate is the share of reviewers whose latest review is a verdict.
func InputsFromRecord(pr *domain.PullRequest, conversations int) Inputs {
	rate := 0
	if pr.ReviewersCount > 0 {
		decisive := pr.ApprovalsCount + pr.ChangesRequestedCount
		rate = int(math.Round(float64(decisive) * 100 / float64(pr.ReviewersCount)))
	}

	return Inputs{
		CIPassed:                pr.ChecksPassed,
		CIFailed:                pr.ChecksFailed,
		Approvals:               pr.ApprovalsCount,
		ChangesRequested:        pr.ChangesRequestedCount,
		UnresolvedConversations: conversations,
		ResponseRatePercent:     rate,
	}
}

// ScoreRecord scores a stored pull request. Sub-scores built from a missing
// sub-resource keep their value but report ConfidenceUnknown.
func ScoreRecord(pr *domain.PullRequest, conversations int) Score {
	score := Calculate(InputsFromRecord(pr, conversations))

	if pr.Missing(domain.ResourceChecks) {
		score.CI.Confidence = ConfidenceUnknown
	}
	if pr.Missing(domain.ResourceReviews) {
		score.Review.Confidence = ConfidenceUnknown
		score.Response.Confidence = ConfidenceUnknown
	}
	return score
}
