package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/go-ozzo/ozzo-validation"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
	"github.com/ZertGraf/pr-readiness/internal/service"
)

type PRHandler struct {
	prService *service.PRService
	logger    *logger.Logger
}

func NewPRHandler(prService *service.PRService, logger *logger.Logger) *PRHandler {
	return &PRHandler{
		prService: prService,
		logger:    logger.Component("handler/pr"),
	}
}

// Routes serves /api/prs. readinessLimit guards the endpoints that may call
// GitHub on a cache miss.
func (h *PRHandler) Routes(readinessLimit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.ListPRs)
	r.Post("/", h.AddPR)
	r.Get("/updates", h.Updates)
	r.Get("/{id}", h.GetPR)
	r.Group(func(r chi.Router) {
		r.Use(readinessLimit)
		r.Get("/{id}/readiness", h.Readiness)
		r.Get("/{id}/timeline", h.Timeline)
		r.Get("/{id}/review-analysis", h.ReviewAnalysis)
	})

	return r
}

type ListPRsResponse struct {
	PRs   []*domain.PullRequest `json:"prs"`
	Count int                   `json:"count"`
}

func (h *PRHandler) ListPRs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.PRFilter{
		Repo:    q.Get("repo"),
		Owner:   q.Get("org"),
		Author:  q.Get("author"),
		SortBy:  domain.SortField(q.Get("sort_by")),
		SortDir: domain.SortDir(q.Get("sort_dir")),
	}

	prs, err := h.prService.ListPRs(r.Context(), filter)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ListPRsResponse{PRs: prs, Count: len(prs)}, h.logger)
}

func (h *PRHandler) GetPR(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	pr, err := h.prService.GetPR(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, pr, h.logger)
}

// Updates reports the newest stored change. With since (RFC 3339) it also
// lists the records stored after that instant.
func (h *PRHandler) Updates(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteErrorCode(w, http.StatusBadRequest, CodeInvalidRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = &at
	}

	updates, err := h.prService.Updates(r.Context(), since)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, updates, h.logger)
}

func (h *PRHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	timeline, err := h.prService.Timeline(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, timeline, h.logger)
}

func (h *PRHandler) ReviewAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	analysis, err := h.prService.ReviewAnalysis(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, analysis, h.logger)
}

type AddPRRequest struct {
	PRURL string `json:"pr_url"`
}

func (req AddPRRequest) Validate() error {
	return ValidateStruct(&req,
		Field(&req.PRURL, Required, Length(1, 2048)),
	)
}

type PRResponse struct {
	PR *domain.PullRequest `json:"pr"`
}

func (h *PRHandler) AddPR(w http.ResponseWriter, r *http.Request) {
	var req AddPRRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		WriteErrorCode(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	pr, err := h.prService.AddPR(r.Context(), req.PRURL)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if pr.RateLimited {
		setRetryAfter(w, pr.RetryAfter)
	}
	writeJSON(w, http.StatusCreated, PRResponse{PR: pr}, h.logger)
}

type RefreshRequest struct {
	PRID int64 `json:"pr_id"`
}

func (req RefreshRequest) Validate() error {
	return ValidateStruct(&req,
		Field(&req.PRID, Required, Min(int64(1))),
	)
}

func (h *PRHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		WriteErrorCode(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	result, err := h.prService.RefreshPR(r.Context(), req.PRID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if result.PR != nil && result.PR.RateLimited {
		setRetryAfter(w, result.PR.RetryAfter)
	}

	writeJSON(w, http.StatusOK, result, h.logger)
}

type RefreshBatchRequest struct {
	PRIDs []int64 `json:"pr_ids"`
}

func (req RefreshBatchRequest) Validate() error {
	return ValidateStruct(&req,
		Field(&req.PRIDs, Required, By(positiveIDs)),
	)
}

func positiveIDs(value interface{}) error {
	ids, _ := value.([]int64)
	for _, id := range ids {
		if id < 1 {
			return fmt.Errorf("ids must be positive, got %d", id)
		}
	}
	return nil
}

func (h *PRHandler) RefreshBatch(w http.ResponseWriter, r *http.Request) {
	var req RefreshBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		WriteErrorCode(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	result, err := h.prService.RefreshBatch(r.Context(), req.PRIDs)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result, h.logger)
}

type ReposResponse struct {
	Repos []*domain.RepoSummary `json:"repos"`
}

func (h *PRHandler) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.prService.ListRepos(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ReposResponse{Repos: repos}, h.logger)
}

type AuthorsResponse struct {
	Authors []*domain.AuthorSummary `json:"authors"`
}

func (h *PRHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.prService.ListAuthors(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, AuthorsResponse{Authors: authors}, h.logger)
}
