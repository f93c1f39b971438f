package domain

import "time"

// PRDetails is the subset of the pull request payload the record needs.
type PRDetails struct {
	Title          string
	State          PRState
	IsMerged       bool
	MergeableState MergeableState
	AuthorLogin    string
	AuthorAvatar   string
	HeadSHA        string
	// ChangedFiles is the total reported by GitHub, not limited to one page.
	ChangedFiles int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	// ClosedAt and MergedAt are zero while the pull request is open.
	ClosedAt time.Time
	MergedAt time.Time
}

type ReviewState string

const (
	ReviewStateApproved         ReviewState = "APPROVED"
	ReviewStateChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewStateCommented        ReviewState = "COMMENTED"
	ReviewStatePending          ReviewState = "PENDING"
	ReviewStateDismissed        ReviewState = "DISMISSED"
)

type Review struct {
	ID          int64
	Reviewer    string
	State       ReviewState
	SubmittedAt time.Time
}

type CheckRun struct {
	ID          int64
	Name        string
	Status      string
	Conclusion  string
	StartedAt   time.Time
	CompletedAt time.Time
}

type Commit struct {
	SHA         string
	Author      string
	Message     string
	CommittedAt time.Time
}

// Comment is a conversation comment or an inline review comment.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}
