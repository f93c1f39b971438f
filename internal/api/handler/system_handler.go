package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ZertGraf/pr-readiness/internal/github"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

type RateLimitSource interface {
	RateLimit() *github.RateLimit
}

type SystemHandler struct {
	db      HealthChecker
	github  RateLimitSource
	storage string
	logger  *logger.Logger
}

func NewSystemHandler(db HealthChecker, github RateLimitSource, storage string, logger *logger.Logger) *SystemHandler {
	return &SystemHandler{
		db:      db,
		github:  github,
		storage: storage,
		logger:  logger.Component("handler/system"),
	}
}

func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"}, h.logger)
}

type StatusResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Storage  string    `json:"storage_driver"`
	Time     time.Time `json:"time"`
	Error    string    `json:"error,omitempty"`
}

// Status reports whether the database answers.
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:   "ok",
		Database: "up",
		Storage:  h.storage,
		Time:     time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := h.db.Health(ctx); err != nil {
		h.logger.Warn("database health check failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "down"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp, h.logger)
}

type RateLimitResponse struct {
	// Known is false until the first GitHub response was seen.
	Known bool              `json:"known"`
	Rate  *github.RateLimit `json:"rate_limit,omitempty"`
}

func (h *SystemHandler) RateLimit(w http.ResponseWriter, _ *http.Request) {
	rate := h.github.RateLimit()
	writeJSON(w, http.StatusOK, RateLimitResponse{Known: rate != nil, Rate: rate}, h.logger)
}
