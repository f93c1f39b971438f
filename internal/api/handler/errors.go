package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

type ErrorCode string

const (
	CodeInvalidURL          ErrorCode = "INVALID_URL"
	CodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	CodePRClosed            ErrorCode = "PR_CLOSED"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeUpstreamNotFound    ErrorCode = "GITHUB_NOT_FOUND"
	CodeRateLimited         ErrorCode = "RATE_LIMITED"
	CodeUpstreamUnavailable ErrorCode = "GITHUB_UNAVAILABLE"
	CodeUpstreamRejected    ErrorCode = "GITHUB_REJECTED"
	CodePartialData         ErrorCode = "PARTIAL_DATA"
	CodeInternal            ErrorCode = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
	// Missing is set for partial aggregation failures.
	Missing []domain.Resource `json:"missing_data,omitempty"`
}

// WriteError maps err to a status code and writes the JSON error body.
func WriteError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status, response := mapError(err)

	if status < http.StatusInternalServerError {
		logger.Warn("request failed",
			"error", err.Error(),
			"code", response.Code,
		)
	} else {
		logger.Error("request failed",
			"error", err.Error(),
			"code", response.Code,
			"status", status,
		)
	}

	var (
		upstream *domain.UpstreamError
		partial  *domain.PartialAggregationError
	)
	switch {
	case errors.As(err, &partial):
		setRetryAfter(w, partial.RetryAfter())
	case errors.As(err, &upstream):
		setRetryAfter(w, upstream.RetryAfter)
	}

	writeErrorResponse(w, status, response)
}

func setRetryAfter(w http.ResponseWriter, wait time.Duration) {
	if wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
}

// WriteErrorCode writes an error body that did not come from a domain error.
func WriteErrorCode(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeErrorResponse(w, status, ErrorResponse{Error: message, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func mapError(err error) (int, ErrorResponse) {
	// partial first, it also matches the upstream kinds of its causes
	var partial *domain.PartialAggregationError
	if errors.As(err, &partial) {
		if partial.HasKind(domain.ErrUpstreamRateLimited) {
			return http.StatusTooManyRequests, ErrorResponse{
				Error:   err.Error(),
				Code:    CodeRateLimited,
				Missing: partial.Resources(),
			}
		}
		return http.StatusBadGateway, ErrorResponse{
			Error:   err.Error(),
			Code:    CodePartialData,
			Missing: partial.Resources(),
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest, ErrorResponse{Error: domain.ErrInvalidURL.Error(), Code: CodeInvalidURL}

	case errors.Is(err, domain.ErrInvalidData):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest}

	case errors.Is(err, domain.ErrPRClosed):
		return http.StatusBadRequest, ErrorResponse{Error: domain.ErrPRClosed.Error(), Code: CodePRClosed}

	case errors.Is(err, domain.ErrPRNotFound):
		return http.StatusNotFound, ErrorResponse{Error: domain.ErrPRNotFound.Error(), Code: CodeNotFound}

	case errors.Is(err, domain.ErrUpstreamNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "pull request not found on github",
			Code:  CodeUpstreamNotFound,
		}

	case errors.Is(err, domain.ErrUpstreamRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{Error: err.Error(), Code: CodeRateLimited}

	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: CodeUpstreamUnavailable}

	case errors.Is(err, domain.ErrUpstreamRejected):
		return http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: CodeUpstreamRejected}

	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternal}
	}
}
