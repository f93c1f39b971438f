package readiness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// maxFanOut bounds concurrent GitHub lookups for one pull request.
const maxFanOut = 4

// GitHubClient is the read-only GitHub capability the aggregator consumes.
type GitHubClient interface {
	GetPullRequest(ctx context.Context, ref domain.PRRef) (*domain.PRDetails, error)
	ListFiles(ctx context.Context, ref domain.PRRef) (int, error)
	ListReviews(ctx context.Context, ref domain.PRRef) ([]domain.Review, error)
	ListCheckRuns(ctx context.Context, ref domain.PRRef, sha string) ([]domain.CheckRun, error)

	ListCommits(ctx context.Context, ref domain.PRRef) ([]domain.Commit, error)
	ListIssueComments(ctx context.Context, ref domain.PRRef) ([]domain.Comment, error)
	ListReviewComments(ctx context.Context, ref domain.PRRef) ([]domain.Comment, error)
}

type Aggregator struct {
	client GitHubClient
	logger *logger.Logger
}

func NewAggregator(client GitHubClient, logger *logger.Logger) *Aggregator {
	return &Aggregator{
		client: client,
		logger: logger.Component("readiness/aggregator"),
	}
}

// Aggregate fetches the four sub-resources of a pull request and merges them
// into one record.
//
// A details failure is returned as is, there is nothing to build a record
// from. Any other failure returns the partially filled record together with
// a *domain.PartialAggregationError; the failed resources are listed in
// the record's MissingData.
func (a *Aggregator) Aggregate(ctx context.Context, ref domain.PRRef) (*domain.PullRequest, error) {
	start := time.Now()

	var (
		mu       sync.Mutex
		failures = make(map[domain.Resource]error)

		details *domain.PRDetails
		files   int
		reviews ReviewSummary
		checks  CheckSummary
	)

	fail := func(res domain.Resource, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures[res] = err
	}

	var g errgroup.Group
	g.SetLimit(maxFanOut)

	// check runs are keyed by the head sha, so they follow details
	g.Go(func() error {
		d, err := a.client.GetPullRequest(ctx, ref)
		if err != nil {
			fail(domain.ResourceDetails, err)
			return nil
		}
		details = d

		if d.HeadSHA == "" {
			fail(domain.ResourceChecks, fmt.Errorf("pull request has no head commit"))
			return nil
		}

		runs, err := a.client.ListCheckRuns(ctx, ref, d.HeadSHA)
		if err != nil {
			fail(domain.ResourceChecks, err)
			return nil
		}
		checks = SummarizeChecks(runs)
		return nil
	})

	g.Go(func() error {
		n, err := a.client.ListFiles(ctx, ref)
		if err != nil {
			fail(domain.ResourceFiles, err)
			return nil
		}
		files = n
		return nil
	})

	g.Go(func() error {
		list, err := a.client.ListReviews(ctx, ref)
		if err != nil {
			fail(domain.ResourceReviews, err)
			return nil
		}
		reviews = SummarizeReviews(list)
		return nil
	})

	_ = g.Wait()

	if err, ok := failures[domain.ResourceDetails]; ok {
		a.logger.Warn("pull request details fetch failed",
			"pr", ref.String(),
			"error", err,
		)
		return nil, err
	}

	pr := &domain.PullRequest{
		URL:            ref.URL(),
		Owner:          ref.Owner,
		Repo:           ref.Repo,
		Number:         ref.Number,
		Title:          details.Title,
		State:          details.State,
		IsMerged:       details.IsMerged,
		MergeableState: details.MergeableState,
		AuthorLogin:    details.AuthorLogin,
		AuthorAvatar:   details.AuthorAvatar,
		HeadSHA:        details.HeadSHA,
		LastUpdatedAt:  details.UpdatedAt,
		ReviewStatus:   domain.ReviewNone,
		MissingData:    []domain.Resource{},
	}

	if _, failed := failures[domain.ResourceFiles]; !failed {
		// the files listing stops after one page
		pr.FilesChanged = max(files, details.ChangedFiles)
	}

	if _, failed := failures[domain.ResourceReviews]; !failed {
		pr.ReviewStatus = reviews.Status
		pr.ApprovalsCount = reviews.Approvals
		pr.ChangesRequestedCount = reviews.ChangesRequested
		pr.ReviewersCount = reviews.Reviewers
	}

	if _, failed := failures[domain.ResourceChecks]; !failed {
		pr.ChecksPassed = checks.Passed
		pr.ChecksFailed = checks.Failed
		pr.ChecksSkipped = checks.Skipped
		pr.ChecksPending = checks.Pending
	}

	if len(failures) > 0 {
		partial := &domain.PartialAggregationError{Failures: failures}
		pr.MissingData = partial.Resources()
		pr.RateLimited = partial.HasKind(domain.ErrUpstreamRateLimited)
		pr.RetryAfter = partial.RetryAfter()

		a.logger.Warn("partial aggregation",
			"pr", ref.String(),
			"missing", pr.MissingData,
			"rate_limited", pr.RateLimited,
			"error", partial,
		)
		return pr, partial
	}

	a.logger.Debug("pull request aggregated",
		"pr", ref.String(),
		"files_changed", pr.FilesChanged,
		"review_status", pr.ReviewStatus,
		"checks_passed", pr.ChecksPassed,
		"checks_failed", pr.ChecksFailed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return pr, nil
}
