package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidURL  = errors.New("invalid pull request url format, expected https://github.com/{owner}/{repo}/pull/{number}")
	ErrPRNotFound  = errors.New("pull request not found")
	ErrPRClosed    = errors.New("pull request is already merged or closed")
	ErrInvalidData = errors.New("invalid request data")

	ErrUpstreamNotFound    = errors.New("github resource not found")
	ErrUpstreamRateLimited = errors.New("github rate limit exceeded")
	ErrUpstreamUnavailable = errors.New("github unavailable")
	ErrUpstreamRejected    = errors.New("github rejected the request")
	ErrPartialAggregation  = errors.New("partial aggregation failure")
)

// UpstreamError is a classified GitHub failure. Kind is one of the ErrUpstream* sentinels.
type UpstreamError struct {
	Kind       error
	Resource   Resource
	StatusCode int
	// RetryAfter is only set for rate limited responses.
	RetryAfter time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Kind.Error()
	if e.Resource != "" {
		msg = fmt.Sprintf("%s: %s", e.Resource, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UpstreamError) Is(target error) bool {
	return target == e.Kind
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may go away on its own.
func (e *UpstreamError) Retryable() bool {
	return e.Kind == ErrUpstreamRateLimited || e.Kind == ErrUpstreamUnavailable
}

// PartialAggregationError lists the sub-resources that could not be fetched
// while the pull request details were obtained.
type PartialAggregationError struct {
	Failures map[Resource]error
}

func (e *PartialAggregationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, res := range e.Resources() {
		parts = append(parts, fmt.Sprintf("%s (%v)", res, e.Failures[res]))
	}
	return fmt.Sprintf("%s: %s", ErrPartialAggregation, strings.Join(parts, ", "))
}

func (e *PartialAggregationError) Is(target error) bool {
	return target == ErrPartialAggregation
}

// Resources returns the failed sub-resources in a stable order.
func (e *PartialAggregationError) Resources() []Resource {
	res := make([]Resource, 0, len(e.Failures))
	for r := range e.Failures {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// HasKind reports whether any failed sub-fetch was of the given upstream kind.
func (e *PartialAggregationError) HasKind(kind error) bool {
	for _, err := range e.Failures {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// RetryAfter is the longest wait requested by a rate limited sub-fetch.
func (e *PartialAggregationError) RetryAfter() time.Duration {
	var wait time.Duration
	for _, err := range e.Failures {
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.Kind == ErrUpstreamRateLimited {
			wait = max(wait, upstream.RetryAfter)
		}
	}
	return wait
}
