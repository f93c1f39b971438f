package github

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/ZertGraf/pr-readiness/internal/domain"
)

// classify maps a go-github error onto the upstream error taxonomy.
// Rate limiting is kept distinct from not-found and validation failures.
func classify(res domain.Resource, resp *gh.Response, err error) *domain.UpstreamError {
	upstream := &domain.UpstreamError{
		Kind:     domain.ErrUpstreamUnavailable,
		Resource: res,
		Err:      err,
	}
	if resp != nil && resp.Response != nil {
		upstream.StatusCode = resp.StatusCode
	}

	var (
		rateErr  *gh.RateLimitError
		abuseErr *gh.AbuseRateLimitError
		errResp  *gh.ErrorResponse
	)

	switch {
	case errors.As(err, &rateErr):
		upstream.Kind = domain.ErrUpstreamRateLimited
		upstream.RetryAfter = max(time.Until(rateErr.Rate.Reset.Time), 0)

	case errors.As(err, &abuseErr):
		upstream.Kind = domain.ErrUpstreamRateLimited
		if abuseErr.RetryAfter != nil {
			upstream.RetryAfter = *abuseErr.RetryAfter
		}

	case errors.As(err, &errResp) && errResp.Response != nil:
		status := errResp.Response.StatusCode
		upstream.StatusCode = status

		switch {
		case status == http.StatusNotFound:
			upstream.Kind = domain.ErrUpstreamNotFound
		case status == http.StatusTooManyRequests,
			status == http.StatusForbidden && errResp.Response.Header.Get("X-RateLimit-Remaining") == "0":
			upstream.Kind = domain.ErrUpstreamRateLimited
			upstream.RetryAfter = retryAfter(errResp.Response.Header)
		case status >= http.StatusInternalServerError:
			upstream.Kind = domain.ErrUpstreamUnavailable
		default:
			// 422 validation failures, 403 permission errors and other 4xx
			upstream.Kind = domain.ErrUpstreamRejected
		}
	}

	return upstream
}

func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			return max(time.Until(time.Unix(unix, 0)), 0)
		}
	}
	return 0
}
