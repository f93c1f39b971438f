package readiness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ZertGraf/pr-readiness/internal/domain"
)

func run(id int64, name, status, conclusion string, offset time.Duration) domain.CheckRun {
	return domain.CheckRun{
		ID:         id,
		Name:       name,
		Status:     status,
		Conclusion: conclusion,
		StartedAt:  t0.Add(offset),
	}
}

func TestSummarizeChecks_Buckets(t *testing.T) {
	runs := []domain.CheckRun{
		run(1, "build", "completed", "success", 0),
		run(2, "lint", "completed", "failure", 0),
		run(3, "e2e", "completed", "timed_out", 0),
		run(4, "docs", "completed", "skipped", 0),
		run(5, "optional", "completed", "neutral", 0),
		run(6, "deploy", "completed", "cancelled", 0),
	}

	s := SummarizeChecks(runs)
	assert.Equal(t, CheckSummary{Passed: 1, Failed: 3, Skipped: 2}, s)
	assert.Equal(t, 6, s.Total())
}

// In-progress checks have no conclusion and count as neither passed nor failed.
func TestSummarizeChecks_InProgressIsNeitherPassedNorFailed(t *testing.T) {
	runs := []domain.CheckRun{
		run(1, "build", "completed", "success", 0),
		run(2, "test", "in_progress", "", 0),
		run(3, "lint", "queued", "", 0),
	}

	s := SummarizeChecks(runs)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, 2, s.Pending)
}

func TestSummarizeChecks_OnlyLatestRunPerName(t *testing.T) {
	runs := []domain.CheckRun{
		run(1, "test", "completed", "failure", 0),
		run(2, "test", "completed", "failure", time.Minute),
		run(3, "test", "completed", "success", 2*time.Minute),
		run(4, "build", "completed", "success", 0),
		run(5, "build", "in_progress", "", time.Hour),
	}

	s := SummarizeChecks(runs)
	assert.Equal(t, CheckSummary{Passed: 1, Pending: 1}, s)
}

func TestSummarizeChecks_Empty(t *testing.T) {
	assert.Equal(t, CheckSummary{}, SummarizeChecks(nil))
}

func TestLatestCheckRuns_TieBreak(t *testing.T) {
	a := run(1, "test", "completed", "failure", 0)
	a.CompletedAt = t0.Add(time.Minute)
	b := run(2, "test", "completed", "success", 0)
	b.CompletedAt = t0.Add(2 * time.Minute)

	assert.Equal(t, int64(2), LatestCheckRuns([]domain.CheckRun{b, a})["test"].ID)

	c := run(7, "lint", "completed", "success", 0)
	d := run(5, "lint", "completed", "failure", 0)
	assert.Equal(t, int64(7), LatestCheckRuns([]domain.CheckRun{c, d})["lint"].ID)
}
