package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ZertGraf/pr-readiness/internal/domain"
)

type mockPRRepo struct {
	mock.Mock
}

func (m *mockPRRepo) Upsert(ctx context.Context, pr *domain.PullRequest) (*domain.PullRequest, error) {
	args := m.Called(ctx, pr)
	if stored := args.Get(0); stored != nil {
		return stored.(*domain.PullRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPRRepo) GetByID(ctx context.Context, id int64) (*domain.PullRequest, error) {
	args := m.Called(ctx, id)
	if pr := args.Get(0); pr != nil {
		return pr.(*domain.PullRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPRRepo) GetByURL(ctx context.Context, url string) (*domain.PullRequest, error) {
	args := m.Called(ctx, url)
	if pr := args.Get(0); pr != nil {
		return pr.(*domain.PullRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPRRepo) List(ctx context.Context, filter domain.PRFilter) ([]*domain.PullRequest, error) {
	args := m.Called(ctx, filter)
	if prs := args.Get(0); prs != nil {
		return prs.([]*domain.PullRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPRRepo) ListRepos(ctx context.Context) ([]*domain.RepoSummary, error) {
	args := m.Called(ctx)
	if repos := args.Get(0); repos != nil {
		return repos.([]*domain.RepoSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPRRepo) ListAuthors(ctx context.Context) ([]*domain.AuthorSummary, error) {
	args := m.Called(ctx)
	if authors := args.Get(0); authors != nil {
		return authors.([]*domain.AuthorSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPRRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) Aggregate(ctx context.Context, ref domain.PRRef) (*domain.PullRequest, error) {
	args := m.Called(ctx, ref)
	if pr := args.Get(0); pr != nil {
		return pr.(*domain.PullRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAggregator) Timeline(ctx context.Context, ref domain.PRRef) (*domain.Timeline, error) {
	args := m.Called(ctx, ref)
	if t := args.Get(0); t != nil {
		return t.(*domain.Timeline), args.Error(1)
	}
	return nil, args.Error(1)
}
