package readiness

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"golang.org/x/sync/errgroup"
)

const summaryRunes = 80

// Timeline merges commits, reviews and comments of a pull request into one
// ordered event list. Unlike Aggregate any failed lookup fails the call.
func (a *Aggregator) Timeline(ctx context.Context, ref domain.PRRef) (*domain.Timeline, error) {
	start := time.Now()

	var (
		details        *domain.PRDetails
		commits        []domain.Commit
		reviews        []domain.Review
		comments       []domain.Comment
		reviewComments []domain.Comment
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOut)

	g.Go(func() (err error) {
		details, err = a.client.GetPullRequest(ctx, ref)
		return err
	})
	g.Go(func() (err error) {
		commits, err = a.client.ListCommits(ctx, ref)
		return err
	})
	g.Go(func() (err error) {
		reviews, err = a.client.ListReviews(ctx, ref)
		return err
	})
	g.Go(func() (err error) {
		comments, err = a.client.ListIssueComments(ctx, ref)
		return err
	})
	g.Go(func() (err error) {
		reviewComments, err = a.client.ListReviewComments(ctx, ref)
		return err
	})

	if err := g.Wait(); err != nil {
		a.logger.Warn("timeline fetch failed", "pr", ref.String(), "error", err)
		return nil, err
	}

	events := make([]domain.TimelineEvent, 0, 3+len(commits)+len(reviews)+len(comments)+len(reviewComments))

	events = append(events, domain.TimelineEvent{
		Type:  domain.EventOpened,
		Actor: details.AuthorLogin,
		At:    details.CreatedAt,
	})

	for _, c := range commits {
		events = append(events, domain.TimelineEvent{
			Type:    domain.EventCommit,
			Actor:   c.Author,
			At:      c.CommittedAt,
			SHA:     c.SHA,
			Summary: summarize(c.Message),
		})
	}

	for _, r := range reviews {
		// pending reviews are drafts without a submission time
		if r.State == domain.ReviewStatePending || r.SubmittedAt.IsZero() {
			continue
		}
		events = append(events, domain.TimelineEvent{
			Type:  domain.EventReview,
			Actor: r.Reviewer,
			At:    r.SubmittedAt,
			State: r.State,
		})
	}

	for _, c := range comments {
		events = append(events, domain.TimelineEvent{
			Type:    domain.EventComment,
			Actor:   c.Author,
			At:      c.CreatedAt,
			Summary: summarize(c.Body),
		})
	}

	for _, c := range reviewComments {
		events = append(events, domain.TimelineEvent{
			Type:    domain.EventReviewComment,
			Actor:   c.Author,
			At:      c.CreatedAt,
			Summary: summarize(c.Body),
		})
	}

	switch {
	case details.IsMerged && !details.MergedAt.IsZero():
		events = append(events, domain.TimelineEvent{Type: domain.EventMerged, At: details.MergedAt})
	case details.State == domain.PRStateClosed && !details.ClosedAt.IsZero():
		events = append(events, domain.TimelineEvent{Type: domain.EventClosed, At: details.ClosedAt})
	}

	domain.SortEvents(events)

	a.logger.Debug("timeline built",
		"pr", ref.String(),
		"events", len(events),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &domain.Timeline{
		PRURL:     ref.URL(),
		OpenedAt:  details.CreatedAt,
		Events:    events,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// summarize returns the first line of text cut to summaryRunes.
func summarize(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= summaryRunes {
		return line
	}
	runes := []rune(line)
	return string(runes[:summaryRunes-1]) + "…"
}
