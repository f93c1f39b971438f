package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/readiness"
)

// Timeline returns the event history of a tracked pull request. It is built
// from GitHub on a cache miss and cached until the record is refreshed or
// the timeline TTL passes.
func (s *PRService) Timeline(ctx context.Context, id int64) (*domain.Timeline, error) {
	if t, ok := s.timelines.get(id); ok {
		s.logger.Debug("timeline cache hit", "id", id)
		return t, nil
	}

	pr, err := s.prRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pr: %w", err)
	}

	t, err := s.aggregator.Timeline(ctx, pr.Ref())
	if err != nil {
		return nil, fmt.Errorf("timeline %s: %w", pr.Ref(), err)
	}
	s.timelines.set(id, t)

	s.logger.Debug("timeline built",
		"id", id,
		"events", len(t.Events),
	)

	return t, nil
}

// ReviewAnalysis summarizes reviewer activity on the cached timeline.
func (s *PRService) ReviewAnalysis(ctx context.Context, id int64) (*readiness.ReviewAnalysis, error) {
	t, err := s.Timeline(ctx, id)
	if err != nil {
		return nil, err
	}

	analysis := readiness.AnalyzeReviews(t)
	return &analysis, nil
}

// Updates tells a polling client whether tracked records changed.
type Updates struct {
	Total           int        `json:"total_prs"`
	LatestUpdatedAt *time.Time `json:"latest_updated_at"`
	// ChangedIDs lists records stored after Since, empty without Since.
	ChangedIDs []int64    `json:"changed_ids"`
	Since      *time.Time `json:"since,omitempty"`
}

func (s *PRService) Updates(ctx context.Context, since *time.Time) (*Updates, error) {
	prs, err := s.prRepo.List(ctx, domain.PRFilter{}.WithDefaults())
	if err != nil {
		return nil, fmt.Errorf("list prs: %w", err)
	}

	u := &Updates{
		Total:      len(prs),
		ChangedIDs: make([]int64, 0),
		Since:      since,
	}
	for _, pr := range prs {
		if u.LatestUpdatedAt == nil || pr.UpdatedAt.After(*u.LatestUpdatedAt) {
			at := pr.UpdatedAt
			u.LatestUpdatedAt = &at
		}
		if since != nil && pr.UpdatedAt.After(*since) {
			u.ChangedIDs = append(u.ChangedIDs, pr.ID)
		}
	}

	return u, nil
}
