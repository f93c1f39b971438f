package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
	"github.com/ZertGraf/pr-readiness/internal/repository"
)

// Aggregator builds a fresh record for a pull request from GitHub.
type Aggregator interface {
	Aggregate(ctx context.Context, ref domain.PRRef) (*domain.PullRequest, error)
	Timeline(ctx context.Context, ref domain.PRRef) (*domain.Timeline, error)
}

// Policy controls how terminal and partially fetched pull requests are handled.
type Policy struct {
	// RetainClosed keeps merged or closed pull requests. Otherwise adding one
	// fails with ErrPRClosed and refreshing one deletes its record.
	RetainClosed bool
	// StorePartial stores records with missing sub-resources listed in
	// missing_data. Otherwise a partial aggregation fails the operation.
	StorePartial    bool
	MaxBatchRefresh int
}

type PRService struct {
	prRepo     repository.PRRepository
	aggregator Aggregator
	scores     *ttlCache[scoreKey, *Report]
	timelines  *ttlCache[int64, *domain.Timeline]
	policy     Policy
	logger     *logger.Logger
}

func NewPRService(
	prRepo repository.PRRepository,
	aggregator Aggregator,
	policy Policy,
	cacheConfig CacheConfig,
	logger *logger.Logger,
) *PRService {
	return &PRService{
		prRepo:     prRepo,
		aggregator: aggregator,
		scores:     newTTLCache[scoreKey, *Report](cacheConfig.TTL, cacheConfig.Capacity),
		timelines:  newTTLCache[int64, *domain.Timeline](cacheConfig.TimelineTTL, cacheConfig.Capacity),
		policy:     policy,
		logger:     logger.Component("service/pr"),
	}
}

// Close stops the cache janitors.
func (s *PRService) Close() {
	s.scores.stop()
	s.timelines.stop()
}

// invalidate drops everything cached for a record.
func (s *PRService) invalidate(id int64) {
	s.scores.deleteWhere(func(k scoreKey) bool { return k.prID == id })
	s.timelines.deleteWhere(func(k int64) bool { return k == id })
}

// RefreshResult is the outcome of refreshing one tracked pull request.
// Removed is set when the pull request was closed and its record deleted.
type RefreshResult struct {
	PR      *domain.PullRequest `json:"pr,omitempty"`
	Removed bool                `json:"removed"`
}

func (s *PRService) AddPR(ctx context.Context, rawURL string) (*domain.PullRequest, error) {
	ref, err := domain.ParsePRURL(rawURL)
	if err != nil {
		return nil, err
	}

	pr, err := s.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	if pr.IsTerminal() && !s.policy.RetainClosed {
		s.logger.Info("refusing to track closed pull request",
			"pr", ref.String(),
			"merged", pr.IsMerged,
		)
		return nil, domain.ErrPRClosed
	}

	stored, err := s.prRepo.Upsert(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("store pr: %w", err)
	}
	stored.RetryAfter = pr.RetryAfter
	s.invalidate(stored.ID)

	s.logger.Info("pr tracked",
		"id", stored.ID,
		"pr", ref.String(),
		"state", stored.State,
		"missing", stored.MissingData,
	)

	return stored, nil
}

func (s *PRService) RefreshPR(ctx context.Context, id int64) (*RefreshResult, error) {
	existing, err := s.prRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pr: %w", err)
	}

	// the stored record is left untouched when the fetch fails
	pr, err := s.fetch(ctx, existing.Ref())
	if err != nil {
		return nil, err
	}

	if pr.IsTerminal() && !s.policy.RetainClosed {
		if err := s.prRepo.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("delete closed pr: %w", err)
		}
		s.invalidate(id)

		s.logger.Info("closed pr removed",
			"id", id,
			"pr", existing.Ref().String(),
			"merged", pr.IsMerged,
		)

		pr.ID = id
		return &RefreshResult{PR: pr, Removed: true}, nil
	}

	stored, err := s.prRepo.Upsert(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("store pr: %w", err)
	}
	stored.RetryAfter = pr.RetryAfter
	s.invalidate(id)

	s.logger.Info("pr refreshed",
		"id", stored.ID,
		"pr", existing.Ref().String(),
		"missing", stored.MissingData,
	)

	return &RefreshResult{PR: stored}, nil
}

// fetch aggregates a pull request and applies the partial-data policy.
func (s *PRService) fetch(ctx context.Context, ref domain.PRRef) (*domain.PullRequest, error) {
	pr, err := s.aggregator.Aggregate(ctx, ref)
	if err == nil {
		return pr, nil
	}

	var partial *domain.PartialAggregationError
	if errors.As(err, &partial) && s.policy.StorePartial && pr != nil {
		return pr, nil
	}

	return nil, fmt.Errorf("aggregate %s: %w", ref, err)
}

type BatchStatus string

const (
	BatchStatusUpdated BatchStatus = "updated"
	BatchStatusRemoved BatchStatus = "removed"
	BatchStatusFailed  BatchStatus = "failed"
)

type BatchItem struct {
	ID     int64               `json:"id"`
	Status BatchStatus         `json:"status"`
	PR     *domain.PullRequest `json:"pr,omitempty"`
	Error  string              `json:"error,omitempty"`
}

type BatchResult struct {
	Items   []BatchItem `json:"results"`
	Updated int         `json:"updated"`
	Removed int         `json:"removed"`
	Failed  int         `json:"failed"`
}

// RefreshBatch refreshes the given records one after another. Repeated ids
// are refreshed once and count once against the batch limit. A failing id
// is reported in its item and does not stop the rest.
func (s *PRService) RefreshBatch(ctx context.Context, ids []int64) (*BatchResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: pr_ids must not be empty", domain.ErrInvalidData)
	}

	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) > s.policy.MaxBatchRefresh {
		return nil, fmt.Errorf("%w: at most %d pull requests per batch", domain.ErrInvalidData, s.policy.MaxBatchRefresh)
	}

	result := &BatchResult{Items: make([]BatchItem, 0, len(unique))}

	for _, id := range unique {
		item := BatchItem{ID: id}

		if err := ctx.Err(); err != nil {
			item.Status = BatchStatusFailed
			item.Error = err.Error()
			result.Items = append(result.Items, item)
			result.Failed++
			continue
		}

		refreshed, err := s.RefreshPR(ctx, id)
		switch {
		case err != nil:
			item.Status = BatchStatusFailed
			item.Error = err.Error()
			result.Failed++
		case refreshed.Removed:
			item.Status = BatchStatusRemoved
			item.PR = refreshed.PR
			result.Removed++
		default:
			item.Status = BatchStatusUpdated
			item.PR = refreshed.PR
			result.Updated++
		}
		result.Items = append(result.Items, item)
	}

	s.logger.Info("batch refresh finished",
		"requested", len(unique),
		"updated", result.Updated,
		"removed", result.Removed,
		"failed", result.Failed,
	)

	return result, nil
}

func (s *PRService) ListPRs(ctx context.Context, filter domain.PRFilter) ([]*domain.PullRequest, error) {
	if filter.Repo != "" {
		owner, name, ok := strings.Cut(filter.Repo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("%w: repo must be owner/name", domain.ErrInvalidData)
		}
	}
	if filter.SortBy != "" && !filter.SortBy.Valid() {
		return nil, fmt.Errorf("%w: unknown sort_by %q", domain.ErrInvalidData, filter.SortBy)
	}
	if filter.SortDir != "" && filter.SortDir != domain.SortAsc && filter.SortDir != domain.SortDesc {
		return nil, fmt.Errorf("%w: sort_dir must be asc or desc", domain.ErrInvalidData)
	}
	filter = filter.WithDefaults()

	prs, err := s.prRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list prs: %w", err)
	}

	s.logger.Debug("listed prs",
		"repo", filter.Repo,
		"owner", filter.Owner,
		"author", filter.Author,
		"sort", filter.SortBy,
		"count", len(prs),
	)

	return prs, nil
}

func (s *PRService) GetPR(ctx context.Context, id int64) (*domain.PullRequest, error) {
	pr, err := s.prRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pr: %w", err)
	}
	return pr, nil
}

func (s *PRService) ListRepos(ctx context.Context) ([]*domain.RepoSummary, error) {
	repos, err := s.prRepo.ListRepos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	return repos, nil
}

func (s *PRService) ListAuthors(ctx context.Context) ([]*domain.AuthorSummary, error) {
	authors, err := s.prRepo.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}
