package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

// pullRequestModel is the GORM model for the pull_requests table
type pullRequestModel struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement"`
	URL                   string    `gorm:"column:pr_url;not null;uniqueIndex"`
	Owner                 string    `gorm:"column:repo_owner;not null;index:idx_pull_requests_repo"`
	Repo                  string    `gorm:"column:repo_name;not null;index:idx_pull_requests_repo"`
	Number                int       `gorm:"column:pr_number;not null"`
	Title                 string    `gorm:"not null;default:''"`
	State                 string    `gorm:"not null;check:state IN ('open','closed')"`
	IsMerged              bool      `gorm:"not null;default:false"`
	MergeableState        string    `gorm:"not null;default:'unknown'"`
	FilesChanged          int       `gorm:"not null;default:0"`
	AuthorLogin           string    `gorm:"not null;default:'';index:idx_pull_requests_author"`
	AuthorAvatar          string    `gorm:"not null;default:''"`
	HeadSHA               string    `gorm:"column:head_sha;not null;default:''"`
	ChecksPassed          int       `gorm:"not null;default:0"`
	ChecksFailed          int       `gorm:"not null;default:0"`
	ChecksSkipped         int       `gorm:"not null;default:0"`
	ChecksPending         int       `gorm:"not null;default:0"`
	ReviewStatus          string    `gorm:"not null;default:'none'"`
	ApprovalsCount        int       `gorm:"not null;default:0"`
	ChangesRequestedCount int       `gorm:"not null;default:0"`
	ReviewersCount        int       `gorm:"not null;default:0"`
	MissingData           string    `gorm:"not null;default:''"`
	RateLimited           bool      `gorm:"not null;default:false"`
	LastUpdatedAt         time.Time `gorm:"not null;index"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (pullRequestModel) TableName() string { return "pull_requests" }

// columns overwritten on conflict, created_at is kept from the first insert
var sqliteUpsertColumns = []string{
	"repo_owner", "repo_name", "pr_number", "title",
	"state", "is_merged", "mergeable_state", "files_changed",
	"author_login", "author_avatar", "head_sha",
	"checks_passed", "checks_failed", "checks_skipped", "checks_pending",
	"review_status", "approvals_count", "changes_requested_count", "reviewers_count",
	"missing_data", "rate_limited", "last_updated_at", "updated_at",
}

// SQLitePRRepo implements PRRepository on SQLite through GORM.
type SQLitePRRepo struct {
	db     *gorm.DB
	logger *logger.Logger
}

var _ PRRepository = (*SQLitePRRepo)(nil)

func NewSQLitePRRepo(db *gorm.DB, logger *logger.Logger) *SQLitePRRepo {
	return &SQLitePRRepo{
		db:     db,
		logger: logger.Component("repository/pr_sqlite"),
	}
}

// Migrate creates or updates the schema.
func (r *SQLitePRRepo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&pullRequestModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (r *SQLitePRRepo) Upsert(ctx context.Context, pr *domain.PullRequest) (*domain.PullRequest, error) {
	m := toModel(pr)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pr_url"}},
		DoUpdates: clause.AssignmentColumns(sqliteUpsertColumns),
	}).Create(&m).Error
	if err != nil {
		return nil, fmt.Errorf("upsert pr: %w", err)
	}

	// the conflict path does not report the existing id reliably
	stored, err := r.GetByURL(ctx, pr.URL)
	if err != nil {
		return nil, fmt.Errorf("reload upserted pr: %w", err)
	}

	r.logger.Debug("pr upserted", "id", stored.ID, "url", stored.URL)
	return stored, nil
}

func (r *SQLitePRRepo) GetByID(ctx context.Context, id int64) (*domain.PullRequest, error) {
	var m pullRequestModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPRNotFound
		}
		return nil, fmt.Errorf("get pr: %w", err)
	}
	return fromModel(&m), nil
}

func (r *SQLitePRRepo) GetByURL(ctx context.Context, url string) (*domain.PullRequest, error) {
	var m pullRequestModel
	if err := r.db.WithContext(ctx).First(&m, "pr_url = ?", url).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPRNotFound
		}
		return nil, fmt.Errorf("get pr by url: %w", err)
	}
	return fromModel(&m), nil
}

func (r *SQLitePRRepo) List(ctx context.Context, filter domain.PRFilter) ([]*domain.PullRequest, error) {
	q := r.db.WithContext(ctx).Model(&pullRequestModel{})

	if filter.Repo != "" {
		owner, name, _ := strings.Cut(filter.Repo, "/")
		q = q.Where("repo_owner = ? AND repo_name = ?", owner, name)
	}
	if filter.Owner != "" {
		q = q.Where("repo_owner = ?", filter.Owner)
	}
	if filter.Author != "" {
		q = q.Where("author_login = ?", filter.Author)
	}

	var models []pullRequestModel
	if err := q.Order(orderBy(filter)).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("query prs: %w", err)
	}

	prs := make([]*domain.PullRequest, 0, len(models))
	for i := range models {
		prs = append(prs, fromModel(&models[i]))
	}
	return prs, nil
}

func (r *SQLitePRRepo) ListRepos(ctx context.Context) ([]*domain.RepoSummary, error) {
	var rows []struct {
		RepoOwner string `gorm:"column:repo_owner"`
		RepoName  string `gorm:"column:repo_name"`
		PRCount   int    `gorm:"column:pr_count"`
	}

	err := r.db.WithContext(ctx).Model(&pullRequestModel{}).
		Select("repo_owner, repo_name, COUNT(*) AS pr_count").
		Group("repo_owner, repo_name").
		Order("repo_owner, repo_name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query repos: %w", err)
	}

	repos := make([]*domain.RepoSummary, 0, len(rows))
	for _, row := range rows {
		repos = append(repos, &domain.RepoSummary{Owner: row.RepoOwner, Name: row.RepoName, PRCount: row.PRCount})
	}
	return repos, nil
}

func (r *SQLitePRRepo) ListAuthors(ctx context.Context) ([]*domain.AuthorSummary, error) {
	var rows []struct {
		AuthorLogin  string `gorm:"column:author_login"`
		AuthorAvatar string `gorm:"column:author_avatar"`
		PRCount      int    `gorm:"column:pr_count"`
	}

	err := r.db.WithContext(ctx).Model(&pullRequestModel{}).
		Select("author_login, MAX(author_avatar) AS author_avatar, COUNT(*) AS pr_count").
		Where("author_login <> ''").
		Group("author_login").
		Order("pr_count DESC, author_login").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}

	authors := make([]*domain.AuthorSummary, 0, len(rows))
	for _, row := range rows {
		authors = append(authors, &domain.AuthorSummary{Login: row.AuthorLogin, Avatar: row.AuthorAvatar, PRCount: row.PRCount})
	}
	return authors, nil
}

func (r *SQLitePRRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&pullRequestModel{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete pr: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrPRNotFound
	}
	return nil
}

func toModel(pr *domain.PullRequest) pullRequestModel {
	return pullRequestModel{
		URL:                   pr.URL,
		Owner:                 pr.Owner,
		Repo:                  pr.Repo,
		Number:                pr.Number,
		Title:                 pr.Title,
		State:                 string(pr.State),
		IsMerged:              pr.IsMerged,
		MergeableState:        string(pr.MergeableState),
		FilesChanged:          pr.FilesChanged,
		AuthorLogin:           pr.AuthorLogin,
		AuthorAvatar:          pr.AuthorAvatar,
		HeadSHA:               pr.HeadSHA,
		ChecksPassed:          pr.ChecksPassed,
		ChecksFailed:          pr.ChecksFailed,
		ChecksSkipped:         pr.ChecksSkipped,
		ChecksPending:         pr.ChecksPending,
		ReviewStatus:          string(pr.ReviewStatus),
		ApprovalsCount:        pr.ApprovalsCount,
		ChangesRequestedCount: pr.ChangesRequestedCount,
		ReviewersCount:        pr.ReviewersCount,
		MissingData:           strings.Join(resourcesToStrings(pr.MissingData), ","),
		RateLimited:           pr.RateLimited,
		LastUpdatedAt:         pr.LastUpdatedAt.UTC(),
	}
}

func fromModel(m *pullRequestModel) *domain.PullRequest {
	return &domain.PullRequest{
		ID:                    m.ID,
		URL:                   m.URL,
		Owner:                 m.Owner,
		Repo:                  m.Repo,
		Number:                m.Number,
		Title:                 m.Title,
		State:                 domain.PRState(m.State),
		IsMerged:              m.IsMerged,
		MergeableState:        domain.MergeableState(m.MergeableState),
		FilesChanged:          m.FilesChanged,
		AuthorLogin:           m.AuthorLogin,
		AuthorAvatar:          m.AuthorAvatar,
		HeadSHA:               m.HeadSHA,
		ChecksPassed:          m.ChecksPassed,
		ChecksFailed:          m.ChecksFailed,
		ChecksSkipped:         m.ChecksSkipped,
		ChecksPending:         m.ChecksPending,
		ReviewStatus:          domain.ReviewStatus(m.ReviewStatus),
		ApprovalsCount:        m.ApprovalsCount,
		ChangesRequestedCount: m.ChangesRequestedCount,
		ReviewersCount:        m.ReviewersCount,
		MissingData:           stringsToResources(strings.Split(m.MissingData, ",")),
		RateLimited:           m.RateLimited,
		LastUpdatedAt:         m.LastUpdatedAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}
