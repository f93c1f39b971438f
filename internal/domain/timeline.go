package domain

import (
	"sort"
	"time"
)

type TimelineEventType string

const (
	EventOpened        TimelineEventType = "opened"
	EventCommit        TimelineEventType = "commit"
	EventReview        TimelineEventType = "review"
	EventComment       TimelineEventType = "comment"
	EventReviewComment TimelineEventType = "review_comment"
	EventMerged        TimelineEventType = "merged"
	EventClosed        TimelineEventType = "closed"
)

type TimelineEvent struct {
	Type  TimelineEventType `json:"type"`
	Actor string            `json:"actor"`
	At    time.Time         `json:"at"`
	// State is set for reviews, SHA for commits.
	State   ReviewState `json:"state,omitempty"`
	SHA     string      `json:"sha,omitempty"`
	Summary string      `json:"summary,omitempty"`
}

// Timeline is the activity history of a pull request, oldest first.
type Timeline struct {
	PRURL     string          `json:"pr_url"`
	OpenedAt  time.Time       `json:"opened_at"`
	Events    []TimelineEvent `json:"events"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// SortEvents orders events by time. Events at the same instant keep the
// order of their types in the pull request lifecycle.
func SortEvents(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].At.Equal(events[j].At) {
			return events[i].At.Before(events[j].At)
		}
		return eventRank(events[i].Type) < eventRank(events[j].Type)
	})
}

func eventRank(t TimelineEventType) int {
	switch t {
	case EventOpened:
		return 0
	case EventCommit:
		return 1
	case EventReview:
		return 2
	case EventReviewComment:
		return 3
	case EventComment:
		return 4
	case EventMerged:
		return 5
	default:
		return 6
	}
}
