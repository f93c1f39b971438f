package domain

import (
	"fmt"
	"time"
)

type PullRequest struct {
	ID     int64  `json:"id"`
	URL    string `json:"pr_url"`
	Owner  string `json:"repo_owner"`
	Repo   string `json:"repo_name"`
	Number int    `json:"pr_number"`
	Title  string `json:"title"`

	State          PRState        `json:"state"`
	IsMerged       bool           `json:"is_merged"`
	MergeableState MergeableState `json:"mergeable_state"`
	FilesChanged   int            `json:"files_changed"`

	AuthorLogin  string `json:"author_login"`
	AuthorAvatar string `json:"author_avatar"`
	HeadSHA      string `json:"head_sha"`

	ChecksPassed  int `json:"checks_passed"`
	ChecksFailed  int `json:"checks_failed"`
	ChecksSkipped int `json:"checks_skipped"`
	ChecksPending int `json:"checks_pending"`

	ReviewStatus          ReviewStatus `json:"review_status"`
	ApprovalsCount        int          `json:"approvals_count"`
	ChangesRequestedCount int          `json:"changes_requested_count"`
	ReviewersCount        int          `json:"reviewers_count"`

	// MissingData lists sub-resources that failed on the last refresh,
	// their counters are not meaningful.
	MissingData []Resource `json:"missing_data"`
	// RateLimited is set when at least one missing sub-resource was refused
	// by the GitHub rate limit, a later refresh is likely to fill it in.
	RateLimited bool `json:"rate_limited"`
	// RetryAfter is the wait GitHub asked for on the last refresh, not stored.
	RetryAfter time.Duration `json:"-"`

	LastUpdatedAt time.Time `json:"last_updated_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsTerminal reports whether the PR no longer needs tracking.
func (pr *PullRequest) IsTerminal() bool {
	return pr.IsMerged || pr.State == PRStateClosed
}

// IsComplete reports whether every sub-resource was fetched.
func (pr *PullRequest) IsComplete() bool {
	return len(pr.MissingData) == 0
}

// Missing reports whether the given sub-resource failed on the last refresh.
func (pr *PullRequest) Missing(res Resource) bool {
	for _, r := range pr.MissingData {
		if r == res {
			return true
		}
	}
	return false
}

func (pr *PullRequest) Ref() PRRef {
	return PRRef{Owner: pr.Owner, Repo: pr.Repo, Number: pr.Number}
}

type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

type MergeableState string

const (
	MergeableClean    MergeableState = "clean"
	MergeableDirty    MergeableState = "dirty"
	MergeableBlocked  MergeableState = "blocked"
	MergeableUnstable MergeableState = "unstable"
	MergeableUnknown  MergeableState = "unknown"
)

// NormalizeMergeableState maps GitHub values outside the tracked set to unknown.
func NormalizeMergeableState(s string) MergeableState {
	switch st := MergeableState(s); st {
	case MergeableClean, MergeableDirty, MergeableBlocked, MergeableUnstable:
		return st
	default:
		return MergeableUnknown
	}
}

type ReviewStatus string

const (
	ReviewApproved         ReviewStatus = "approved"
	ReviewChangesRequested ReviewStatus = "changes_requested"
	ReviewPending          ReviewStatus = "pending"
	ReviewNone             ReviewStatus = "none"
)

// Resource names a GitHub lookup. The first four build a record.
type Resource string

const (
	ResourceDetails Resource = "details"
	ResourceFiles   Resource = "files"
	ResourceReviews Resource = "reviews"
	ResourceChecks  Resource = "checks"

	// timeline lookups, never part of missing_data
	ResourceCommits        Resource = "commits"
	ResourceComments       Resource = "comments"
	ResourceReviewComments Resource = "review_comments"
)

// PRRef identifies a pull request on GitHub.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r PRRef) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", r.Owner, r.Repo, r.Number)
}

func (r PRRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

type PRFilter struct {
	// Repo is "owner/name".
	Repo   string
	Owner  string
	Author string

	// SortBy defaults to SortLastUpdated, SortDir to SortDesc.
	SortBy  SortField
	SortDir SortDir
}

// SortField is a record field the list can be ordered by.
type SortField string

const (
	SortLastUpdated  SortField = "last_updated_at"
	SortCreated      SortField = "created_at"
	SortTitle        SortField = "title"
	SortNumber       SortField = "pr_number"
	SortFilesChanged SortField = "files_changed"
	SortApprovals    SortField = "approvals_count"
	SortChecksFailed SortField = "checks_failed"
)

func (f SortField) Valid() bool {
	switch f {
	case SortLastUpdated, SortCreated, SortTitle, SortNumber,
		SortFilesChanged, SortApprovals, SortChecksFailed:
		return true
	}
	return false
}

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// WithDefaults fills an empty sort field and direction.
func (f PRFilter) WithDefaults() PRFilter {
	if f.SortBy == "" {
		f.SortBy = SortLastUpdated
	}
	if f.SortDir == "" {
		f.SortDir = SortDesc
	}
	return f
}

type RepoSummary struct {
	Owner   string `json:"repo_owner"`
	Name    string `json:"repo_name"`
	PRCount int    `json:"pr_count"`
}

type AuthorSummary struct {
	Login   string `json:"author_login"`
	Avatar  string `json:"author_avatar"`
	PRCount int    `json:"pr_count"`
}
