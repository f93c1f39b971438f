package repository

import (
	"context"

	"github.com/ZertGraf/pr-readiness/internal/domain"
)

// PRRepository stores one readiness record per pull request URL.
type PRRepository interface {
	// Upsert inserts or fully overwrites the record with the same URL and
	// returns the stored row.
	Upsert(ctx context.Context, pr *domain.PullRequest) (*domain.PullRequest, error)
	GetByID(ctx context.Context, id int64) (*domain.PullRequest, error)
	GetByURL(ctx context.Context, url string) (*domain.PullRequest, error)
	List(ctx context.Context, filter domain.PRFilter) ([]*domain.PullRequest, error)
	ListRepos(ctx context.Context) ([]*domain.RepoSummary, error)
	ListAuthors(ctx context.Context) ([]*domain.AuthorSummary, error)
	Delete(ctx context.Context, id int64) error
}

func resourcesToStrings(res []domain.Resource) []string {
	out := make([]string, 0, len(res))
	for _, r := range res {
		out = append(out, string(r))
	}
	return out
}

func stringsToResources(values []string) []domain.Resource {
	out := make([]domain.Resource, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, domain.Resource(v))
		}
	}
	return out
}
