package readiness

import (
	"github.com/ZertGraf/pr-readiness/internal/domain"
)

type CheckSummary struct {
	Passed  int
	Failed  int
	Skipped int
	// Pending counts checks without a conclusion yet. They are neither passed nor failed.
	Pending int
}

func (s CheckSummary) Total() int {
	return s.Passed + s.Failed + s.Skipped + s.Pending
}

type checkOutcome int

const (
	outcomePending checkOutcome = iota
	outcomePassed
	outcomeFailed
	outcomeSkipped
)

func classifyCheck(run domain.CheckRun) checkOutcome {
	switch run.Conclusion {
	case "success":
		return outcomePassed
	case "failure", "timed_out", "cancelled", "action_required", "startup_failure", "stale":
		return outcomeFailed
	case "skipped", "neutral":
		return outcomeSkipped
	default:
		return outcomePending
	}
}

// LatestCheckRuns keeps the most recent run of every named check.
func LatestCheckRuns(runs []domain.CheckRun) map[string]domain.CheckRun {
	latest := make(map[string]domain.CheckRun, len(runs))
	for _, run := range runs {
		cur, ok := latest[run.Name]
		if !ok || newerRun(run, cur) {
			latest[run.Name] = run
		}
	}
	return latest
}

func newerRun(a, b domain.CheckRun) bool {
	if !a.StartedAt.Equal(b.StartedAt) {
		return a.StartedAt.After(b.StartedAt)
	}
	if !a.CompletedAt.Equal(b.CompletedAt) {
		return a.CompletedAt.After(b.CompletedAt)
	}
	return a.ID > b.ID
}

// SummarizeChecks counts the latest run of every check per outcome bucket.
func SummarizeChecks(runs []domain.CheckRun) CheckSummary {
	var summary CheckSummary
	for _, run := range LatestCheckRuns(runs) {
		switch classifyCheck(run) {
		case outcomePassed:
			summary.Passed++
		case outcomeFailed:
			summary.Failed++
		case outcomeSkipped:
			summary.Skipped++
		default:
			summary.Pending++
		}
	}
	return summary
}
