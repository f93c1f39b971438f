package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/pr-readiness/internal/domain"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePR(owner, repo string, number int, author string, updated time.Duration) *domain.PullRequest {
	ref := domain.PRRef{Owner: owner, Repo: repo, Number: number}
	return &domain.PullRequest{
		URL:            ref.URL(),
		Owner:          owner,
		Repo:           repo,
		Number:         number,
		Title:          "Change " + ref.String(),
		State:          domain.PRStateOpen,
		MergeableState: domain.MergeableClean,
		FilesChanged:   3,
		AuthorLogin:    author,
		AuthorAvatar:   "https://avatars.example/" + author,
		HeadSHA:        "sha-1",
		ChecksPassed:   5,
		ChecksFailed:   1,
		ChecksSkipped:  2,
		ReviewStatus:   domain.ReviewApproved,
		ApprovalsCount: 1,
		ReviewersCount: 1,
		MissingData:    []domain.Resource{},
		LastUpdatedAt:  baseTime.Add(updated),
	}
}

// runRepositorySuite exercises the PRRepository contract against any backend.
// newRepo must return an empty repository.
func runRepositorySuite(t *testing.T, newRepo func(t *testing.T) PRRepository) {
	ctx := context.Background()

	t.Run("upsert inserts and reads back", func(t *testing.T) {
		repo := newRepo(t)

		stored, err := repo.Upsert(ctx, samplePR("octo", "leaf", 1, "alice", 0))
		require.NoError(t, err)
		assert.NotZero(t, stored.ID)
		assert.Equal(t, "https://github.com/octo/leaf/pull/1", stored.URL)
		assert.Equal(t, 5, stored.ChecksPassed)
		assert.Equal(t, domain.ReviewApproved, stored.ReviewStatus)
		assert.Empty(t, stored.MissingData)
		assert.True(t, stored.LastUpdatedAt.Equal(baseTime))
		assert.False(t, stored.CreatedAt.IsZero())

		byID, err := repo.GetByID(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.URL, byID.URL)

		byURL, err := repo.GetByURL(ctx, stored.URL)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, byURL.ID)
	})

	t.Run("upsert overwrites every derived field", func(t *testing.T) {
		repo := newRepo(t)

		first, err := repo.Upsert(ctx, samplePR("octo", "leaf", 1, "alice", 0))
		require.NoError(t, err)

		next := samplePR("octo", "leaf", 1, "alice", time.Hour)
		next.Title = "Renamed"
		next.ChecksPassed = 0
		next.ChecksFailed = 0
		next.ChecksSkipped = 0
		next.ChecksPending = 2
		next.FilesChanged = 9
		next.ReviewStatus = domain.ReviewChangesRequested
		next.ApprovalsCount = 0
		next.ChangesRequestedCount = 1
		next.MergeableState = domain.MergeableDirty
		next.MissingData = []domain.Resource{domain.ResourceChecks}
		next.RateLimited = true

		second, err := repo.Upsert(ctx, next)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Renamed", second.Title)
		assert.Equal(t, 0, second.ChecksPassed)
		assert.Equal(t, 0, second.ChecksFailed)
		assert.Equal(t, 0, second.ChecksSkipped)
		assert.Equal(t, 2, second.ChecksPending)
		assert.Equal(t, 9, second.FilesChanged)
		assert.Equal(t, domain.ReviewChangesRequested, second.ReviewStatus)
		assert.Equal(t, 0, second.ApprovalsCount)
		assert.Equal(t, 1, second.ChangesRequestedCount)
		assert.Equal(t, domain.MergeableDirty, second.MergeableState)
		assert.Equal(t, []domain.Resource{domain.ResourceChecks}, second.MissingData)
		assert.True(t, second.LastUpdatedAt.Equal(baseTime.Add(time.Hour)))
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
		assert.True(t, second.RateLimited)

		// a complete refresh clears the rate limit marker
		next.MissingData = []domain.Resource{}
		next.RateLimited = false
		third, err := repo.Upsert(ctx, next)
		require.NoError(t, err)
		assert.False(t, third.RateLimited)
		assert.Empty(t, third.MissingData)

		all, err := repo.List(ctx, domain.PRFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("missing records", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetByID(ctx, 4242)
		assert.ErrorIs(t, err, domain.ErrPRNotFound)

		_, err = repo.GetByURL(ctx, "https://github.com/none/none/pull/1")
		assert.ErrorIs(t, err, domain.ErrPRNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, 4242), domain.ErrPRNotFound)
	})

	t.Run("list filters and ordering", func(t *testing.T) {
		repo := newRepo(t)

		for _, pr := range []*domain.PullRequest{
			samplePR("octo", "leaf", 1, "alice", 0),
			samplePR("octo", "leaf", 2, "bob", 2*time.Hour),
			samplePR("octo", "tree", 3, "alice", time.Hour),
			samplePR("other", "leaf", 4, "carol", 3*time.Hour),
		} {
			_, err := repo.Upsert(ctx, pr)
			require.NoError(t, err)
		}

		all, err := repo.List(ctx, domain.PRFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, []int{4, 2, 3, 1}, numbers(all))

		byRepo, err := repo.List(ctx, domain.PRFilter{Repo: "octo/leaf"})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1}, numbers(byRepo))

		byOwner, err := repo.List(ctx, domain.PRFilter{Owner: "octo"})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3, 1}, numbers(byOwner))

		byAuthor, err := repo.List(ctx, domain.PRFilter{Author: "alice"})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 1}, numbers(byAuthor))

		none, err := repo.List(ctx, domain.PRFilter{Repo: "nobody/nothing"})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("list sort order", func(t *testing.T) {
		repo := newRepo(t)

		for i, files := range []int{12, 3, 40} {
			pr := samplePR("octo", "leaf", i+1, "alice", time.Duration(i)*time.Hour)
			pr.FilesChanged = files
			pr.ApprovalsCount = 1
			_, err := repo.Upsert(ctx, pr)
			require.NoError(t, err)
		}

		byFiles, err := repo.List(ctx, domain.PRFilter{SortBy: domain.SortFilesChanged, SortDir: domain.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1, 3}, numbers(byFiles))

		byNumber, err := repo.List(ctx, domain.PRFilter{SortBy: domain.SortNumber, SortDir: domain.SortDesc})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 2, 1}, numbers(byNumber))

		// equal approvals fall back to id in the same direction
		byApprovals, err := repo.List(ctx, domain.PRFilter{SortBy: domain.SortApprovals, SortDir: domain.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, numbers(byApprovals))

		oldestFirst, err := repo.List(ctx, domain.PRFilter{SortDir: domain.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, numbers(oldestFirst))
	})

	t.Run("repo and author summaries", func(t *testing.T) {
		repo := newRepo(t)

		for _, pr := range []*domain.PullRequest{
			samplePR("octo", "leaf", 1, "alice", 0),
			samplePR("octo", "leaf", 2, "bob", 0),
			samplePR("octo", "tree", 3, "alice", 0),
		} {
			_, err := repo.Upsert(ctx, pr)
			require.NoError(t, err)
		}

		repos, err := repo.ListRepos(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*domain.RepoSummary{
			{Owner: "octo", Name: "leaf", PRCount: 2},
			{Owner: "octo", Name: "tree", PRCount: 1},
		}, repos)

		authors, err := repo.ListAuthors(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*domain.AuthorSummary{
			{Login: "alice", Avatar: "https://avatars.example/alice", PRCount: 2},
			{Login: "bob", Avatar: "https://avatars.example/bob", PRCount: 1},
		}, authors)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)

		stored, err := repo.Upsert(ctx, samplePR("octo", "leaf", 1, "alice", 0))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, stored.ID))

		_, err = repo.GetByID(ctx, stored.ID)
		assert.ErrorIs(t, err, domain.ErrPRNotFound)
	})
}

func numbers(prs []*domain.PullRequest) []int {
	out := make([]int, 0, len(prs))
	for _, pr := range prs {
		out = append(out, pr.Number)
	}
	return out
}
