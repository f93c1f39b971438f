package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v66/github"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

const (
	perPage = 100
	// maxReviewPages bounds review pagination for one pull request.
	maxReviewPages = 10
)

// RateLimit is the last rate limit state reported by GitHub.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	Reset     time.Time `json:"reset"`
	CheckedAt time.Time `json:"checked_at"`
}

// Client reads pull request data from the GitHub REST API.
type Client struct {
	api    *gh.Client
	config *Config
	logger *logger.Logger

	mu   sync.RWMutex
	rate *RateLimit
}

func New(config *Config, logger *logger.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid github config: %w", err)
	}

	baseURL := config.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse github base url: %w", err)
	}

	client := gh.NewClient(&http.Client{Timeout: config.Timeout})
	if config.Token != "" {
		client = client.WithAuthToken(config.Token)
	}
	client.BaseURL = base

	return &Client{
		api:    client,
		config: config,
		logger: logger.Component("github"),
	}, nil
}

func (c *Client) GetPullRequest(ctx context.Context, ref domain.PRRef) (*domain.PRDetails, error) {
	var pr *gh.PullRequest
	err := c.do(ctx, domain.ResourceDetails, ref, func() (*gh.Response, error) {
		var (
			resp *gh.Response
			err  error
		)
		pr, resp, err = c.api.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	state := domain.PRStateOpen
	if pr.GetState() == string(domain.PRStateClosed) {
		state = domain.PRStateClosed
	}

	return &domain.PRDetails{
		Title:          pr.GetTitle(),
		State:          state,
		IsMerged:       pr.GetMerged() || pr.MergedAt != nil,
		MergeableState: domain.NormalizeMergeableState(pr.GetMergeableState()),
		AuthorLogin:    pr.GetUser().GetLogin(),
		AuthorAvatar:   pr.GetUser().GetAvatarURL(),
		HeadSHA:        pr.GetHead().GetSHA(),
		ChangedFiles:   pr.GetChangedFiles(),
		CreatedAt:      pr.GetCreatedAt().Time,
		UpdatedAt:      pr.GetUpdatedAt().Time,
		ClosedAt:       pr.GetClosedAt().Time,
		MergedAt:       pr.GetMergedAt().Time,
	}, nil
}

// ListFiles returns the number of changed files on the first page. The
// details payload carries the full count for larger pull requests.
func (c *Client) ListFiles(ctx context.Context, ref domain.PRRef) (int, error) {
	var files []*gh.CommitFile
	err := c.do(ctx, domain.ResourceFiles, ref, func() (*gh.Response, error) {
		var (
			resp *gh.Response
			err  error
		)
		files, resp, err = c.api.PullRequests.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number,
			&gh.ListOptions{PerPage: perPage})
		return resp, err
	})
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// ListReviews walks the review pages oldest first, so the latest review of
// every reviewer is included up to maxReviewPages pages.
func (c *Client) ListReviews(ctx context.Context, ref domain.PRRef) ([]domain.Review, error) {
	var reviews []*gh.PullRequestReview
	opts := &gh.ListOptions{PerPage: perPage}

	for i := 0; i < maxReviewPages; i++ {
		var (
			batch []*gh.PullRequestReview
			next  int
		)
		err := c.do(ctx, domain.ResourceReviews, ref, func() (*gh.Response, error) {
			var (
				resp *gh.Response
				err  error
			)
			batch, resp, err = c.api.PullRequests.ListReviews(ctx, ref.Owner, ref.Repo, ref.Number, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		reviews = append(reviews, batch...)
		if next == 0 {
			break
		}
		opts.Page = next
	}

	result := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		result = append(result, domain.Review{
			ID:          r.GetID(),
			Reviewer:    r.GetUser().GetLogin(),
			State:       domain.ReviewState(strings.ToUpper(r.GetState())),
			SubmittedAt: r.GetSubmittedAt().Time,
		})
	}
	return result, nil
}

func (c *Client) ListCheckRuns(ctx context.Context, ref domain.PRRef, sha string) ([]domain.CheckRun, error) {
	var runs *gh.ListCheckRunsResults
	err := c.do(ctx, domain.ResourceChecks, ref, func() (*gh.Response, error) {
		var (
			resp *gh.Response
			err  error
		)
		runs, resp, err = c.api.Checks.ListCheckRunsForRef(ctx, ref.Owner, ref.Repo, sha,
			&gh.ListCheckRunsOptions{ListOptions: gh.ListOptions{PerPage: perPage}})
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.CheckRun, 0, len(runs.CheckRuns))
	for _, run := range runs.CheckRuns {
		result = append(result, domain.CheckRun{
			ID:          run.GetID(),
			Name:        run.GetName(),
			Status:      run.GetStatus(),
			Conclusion:  run.GetConclusion(),
			StartedAt:   run.GetStartedAt().Time,
			CompletedAt: run.GetCompletedAt().Time,
		})
	}
	return result, nil
}

// ListCommits returns the first page of commits, oldest first.
func (c *Client) ListCommits(ctx context.Context, ref domain.PRRef) ([]domain.Commit, error) {
	var commits []*gh.RepositoryCommit
	err := c.do(ctx, domain.ResourceCommits, ref, func() (*gh.Response, error) {
		var (
			resp *gh.Response
			err  error
		)
		commits, resp, err = c.api.PullRequests.ListCommits(ctx, ref.Owner, ref.Repo, ref.Number,
			&gh.ListOptions{PerPage: perPage})
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.Commit, 0, len(commits))
	for _, commit := range commits {
		author := commit.GetAuthor().GetLogin()
		if author == "" {
			author = commit.GetCommit().GetAuthor().GetName()
		}
		result = append(result, domain.Commit{
			SHA:         commit.GetSHA(),
			Author:      author,
			Message:     commit.GetCommit().GetMessage(),
			CommittedAt: commit.GetCommit().GetAuthor().GetDate().Time,
		})
	}
	return result, nil
}

// ListIssueComments returns the first page of conversation comments.
func (c *Client) ListIssueComments(ctx context.Context, ref domain.PRRef) ([]domain.Comment, error) {
	var comments []*gh.IssueComment
	err := c.do(ctx, domain.ResourceComments, ref, func() (*gh.Response, error) {
		var (
			resp *gh.Response
			err  error
		)
		comments, resp, err = c.api.Issues.ListComments(ctx, ref.Owner, ref.Repo, ref.Number,
			&gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}})
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.Comment, 0, len(comments))
	for _, comment := range comments {
		result = append(result, domain.Comment{
			ID:        comment.GetID(),
			Author:    comment.GetUser().GetLogin(),
			Body:      comment.GetBody(),
			CreatedAt: comment.GetCreatedAt().Time,
		})
	}
	return result, nil
}

// ListReviewComments returns the first page of inline review comments.
func (c *Client) ListReviewComments(ctx context.Context, ref domain.PRRef) ([]domain.Comment, error) {
	var comments []*gh.PullRequestComment
	err := c.do(ctx, domain.ResourceReviewComments, ref, func() (*gh.Response, error) {
		var (
			resp *gh.Response
			err  error
		)
		comments, resp, err = c.api.PullRequests.ListComments(ctx, ref.Owner, ref.Repo, ref.Number,
			&gh.PullRequestListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}})
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.Comment, 0, len(comments))
	for _, comment := range comments {
		result = append(result, domain.Comment{
			ID:        comment.GetID(),
			Author:    comment.GetUser().GetLogin(),
			Body:      comment.GetBody(),
			CreatedAt: comment.GetCreatedAt().Time,
		})
	}
	return result, nil
}

// RateLimit returns the last observed rate limit, nil before the first response.
func (c *Client) RateLimit() *RateLimit {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.rate == nil {
		return nil
	}
	snapshot := *c.rate
	return &snapshot
}

// do runs call with bounded exponential backoff. Only rate limited and
// unavailable responses are retried.
func (c *Client) do(ctx context.Context, res domain.Resource, ref domain.PRRef, call func() (*gh.Response, error)) error {
	start := time.Now()
	attempt := 0
	wait := &retryAfterBackOff{BackOff: c.newBackOff()}

	op := func() error {
		attempt++
		resp, err := call()
		c.recordRate(resp)
		if err == nil {
			return nil
		}

		upstream := classify(res, resp, err)
		if !upstream.Retryable() || upstream.RetryAfter > c.config.RetryMaxDelay {
			return backoff.Permanent(upstream)
		}
		wait.floor = upstream.RetryAfter

		c.logger.Warn("github request failed, retrying",
			"resource", res,
			"pr", ref.String(),
			"attempt", attempt,
			"status", upstream.StatusCode,
			"retry_after", upstream.RetryAfter,
			"error", err,
		)
		return upstream
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(wait, c.config.MaxRetries), ctx))
	if err != nil {
		var upstream *domain.UpstreamError
		if !errors.As(err, &upstream) {
			upstream = &domain.UpstreamError{Kind: domain.ErrUpstreamUnavailable, Resource: res, Err: err}
		}

		c.logger.Debug("github request failed",
			"resource", res,
			"pr", ref.String(),
			"attempts", attempt,
			"error", upstream,
		)
		return upstream
	}

	c.logger.Debug("github request",
		"resource", res,
		"pr", ref.String(),
		"attempts", attempt,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryBaseDelay
	b.MaxInterval = c.config.RetryMaxDelay
	b.MaxElapsedTime = 0
	return b
}

// retryAfterBackOff never waits less than the last Retry-After GitHub sent.
type retryAfterBackOff struct {
	backoff.BackOff
	floor time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	next = max(next, b.floor)
	b.floor = 0
	return next
}

func (c *Client) recordRate(resp *gh.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rate = &RateLimit{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		Used:      resp.Rate.Limit - resp.Rate.Remaining,
		Reset:     resp.Rate.Reset.Time,
		CheckedAt: time.Now(),
	}
}
