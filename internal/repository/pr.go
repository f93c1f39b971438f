package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

const prColumns = `
	id, pr_url, repo_owner, repo_name, pr_number, title,
	state, is_merged, mergeable_state, files_changed,
	author_login, author_avatar, head_sha,
	checks_passed, checks_failed, checks_skipped, checks_pending,
	review_status, approvals_count, changes_requested_count, reviewers_count,
	missing_data, rate_limited, last_updated_at, created_at, updated_at`

type PRRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

var _ PRRepository = (*PRRepo)(nil)

func NewPRRepo(db *pgxpool.Pool, logger *logger.Logger) *PRRepo {
	return &PRRepo{
		db:     db,
		logger: logger.Component("repository/pr"),
	}
}

// Upsert writes every derived field, the previous row is never merged in.
func (r *PRRepo) Upsert(ctx context.Context, pr *domain.PullRequest) (*domain.PullRequest, error) {
	query := `
        INSERT INTO pull_requests (
            pr_url, repo_owner, repo_name, pr_number, title,
            state, is_merged, mergeable_state, files_changed,
            author_login, author_avatar, head_sha,
            checks_passed, checks_failed, checks_skipped, checks_pending,
            review_status, approvals_count, changes_requested_count, reviewers_count,
            missing_data, rate_limited, last_updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
        ON CONFLICT (pr_url) DO UPDATE SET
            repo_owner              = EXCLUDED.repo_owner,
            repo_name               = EXCLUDED.repo_name,
            pr_number               = EXCLUDED.pr_number,
            title                   = EXCLUDED.title,
            state                   = EXCLUDED.state,
            is_merged               = EXCLUDED.is_merged,
            mergeable_state         = EXCLUDED.mergeable_state,
            files_changed           = EXCLUDED.files_changed,
            author_login            = EXCLUDED.author_login,
            author_avatar           = EXCLUDED.author_avatar,
            head_sha                = EXCLUDED.head_sha,
            checks_passed           = EXCLUDED.checks_passed,
            checks_failed           = EXCLUDED.checks_failed,
            checks_skipped          = EXCLUDED.checks_skipped,
            checks_pending          = EXCLUDED.checks_pending,
            review_status           = EXCLUDED.review_status,
            approvals_count         = EXCLUDED.approvals_count,
            changes_requested_count = EXCLUDED.changes_requested_count,
            reviewers_count         = EXCLUDED.reviewers_count,
            missing_data            = EXCLUDED.missing_data,
            rate_limited            = EXCLUDED.rate_limited,
            last_updated_at         = EXCLUDED.last_updated_at,
            updated_at              = NOW()
        RETURNING ` + prColumns

	row := r.db.QueryRow(ctx, query,
		pr.URL, pr.Owner, pr.Repo, pr.Number, pr.Title,
		pr.State, pr.IsMerged, pr.MergeableState, pr.FilesChanged,
		pr.AuthorLogin, pr.AuthorAvatar, pr.HeadSHA,
		pr.ChecksPassed, pr.ChecksFailed, pr.ChecksSkipped, pr.ChecksPending,
		pr.ReviewStatus, pr.ApprovalsCount, pr.ChangesRequestedCount, pr.ReviewersCount,
		resourcesToStrings(pr.MissingData), pr.RateLimited, pr.LastUpdatedAt,
	)

	stored, err := scanPR(row)
	if err != nil {
		return nil, fmt.Errorf("upsert pr: %w", err)
	}

	r.logger.Debug("pr upserted", "id", stored.ID, "url", stored.URL)
	return stored, nil
}

// GetByID returns ErrPRNotFound if the record doesn't exist.
func (r *PRRepo) GetByID(ctx context.Context, id int64) (*domain.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE id = $1`

	pr, err := scanPR(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPRNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pr: %w", err)
	}
	return pr, nil
}

func (r *PRRepo) GetByURL(ctx context.Context, url string) (*domain.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE pr_url = $1`

	pr, err := scanPR(r.db.QueryRow(ctx, query, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPRNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pr by url: %w", err)
	}
	return pr, nil
}

// List returns matching records in the filter's order, most recently updated
// on GitHub first by default. Returns empty slice if nothing matches.
func (r *PRRepo) List(ctx context.Context, filter domain.PRFilter) ([]*domain.PullRequest, error) {
	var (
		conds []string
		args  []any
	)
	where := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Repo != "" {
		owner, name, _ := strings.Cut(filter.Repo, "/")
		where("repo_owner = $%d", owner)
		where("repo_name = $%d", name)
	}
	if filter.Owner != "" {
		where("repo_owner = $%d", filter.Owner)
	}
	if filter.Author != "" {
		where("author_login = $%d", filter.Author)
	}

	query := `SELECT ` + prColumns + ` FROM pull_requests`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY ` + orderBy(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prs: %w", err)
	}
	defer rows.Close()

	prs := []*domain.PullRequest{}
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pr: %w", err)
		}
		prs = append(prs, pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return prs, nil
}

// sortColumns whitelists the columns a list may be ordered by.
var sortColumns = map[domain.SortField]string{
	domain.SortLastUpdated:  "last_updated_at",
	domain.SortCreated:      "created_at",
	domain.SortTitle:        "title",
	domain.SortNumber:       "pr_number",
	domain.SortFilesChanged: "files_changed",
	domain.SortApprovals:    "approvals_count",
	domain.SortChecksFailed: "checks_failed",
}

// orderBy renders the ORDER BY list, ties broken by id in the same direction.
func orderBy(filter domain.PRFilter) string {
	filter = filter.WithDefaults()

	col, ok := sortColumns[filter.SortBy]
	if !ok {
		col = sortColumns[domain.SortLastUpdated]
	}
	dir := "DESC"
	if filter.SortDir == domain.SortAsc {
		dir = "ASC"
	}
	return col + " " + dir + ", id " + dir
}

func (r *PRRepo) ListRepos(ctx context.Context) ([]*domain.RepoSummary, error) {
	query := `
		SELECT repo_owner, repo_name, COUNT(*)
		FROM pull_requests
		GROUP BY repo_owner, repo_name
		ORDER BY repo_owner, repo_name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query repos: %w", err)
	}
	defer rows.Close()

	repos := []*domain.RepoSummary{}
	for rows.Next() {
		repo := &domain.RepoSummary{}
		if err := rows.Scan(&repo.Owner, &repo.Name, &repo.PRCount); err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}
		repos = append(repos, repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return repos, nil
}

func (r *PRRepo) ListAuthors(ctx context.Context) ([]*domain.AuthorSummary, error) {
	query := `
		SELECT author_login, MAX(author_avatar), COUNT(*)
		FROM pull_requests
		WHERE author_login <> ''
		GROUP BY author_login
		ORDER BY COUNT(*) DESC, author_login
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	authors := []*domain.AuthorSummary{}
	for rows.Next() {
		author := &domain.AuthorSummary{}
		if err := rows.Scan(&author.Login, &author.Avatar, &author.PRCount); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return authors, nil
}

func (r *PRRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM pull_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pr: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrPRNotFound
	}

	return nil
}

func scanPR(row pgx.Row) (*domain.PullRequest, error) {
	var (
		pr      domain.PullRequest
		missing []string
	)

	err := row.Scan(
		&pr.ID, &pr.URL, &pr.Owner, &pr.Repo, &pr.Number, &pr.Title,
		&pr.State, &pr.IsMerged, &pr.MergeableState, &pr.FilesChanged,
		&pr.AuthorLogin, &pr.AuthorAvatar, &pr.HeadSHA,
		&pr.ChecksPassed, &pr.ChecksFailed, &pr.ChecksSkipped, &pr.ChecksPending,
		&pr.ReviewStatus, &pr.ApprovalsCount, &pr.ChangesRequestedCount, &pr.ReviewersCount,
		&missing, &pr.RateLimited, &pr.LastUpdatedAt, &pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	pr.MissingData = stringsToResources(missing)
	return &pr, nil
}
