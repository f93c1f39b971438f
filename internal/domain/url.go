package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var prURLPattern = regexp.MustCompile(`^https://github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)/pull/([1-9][0-9]*)/?$`)

// ParsePRURL extracts owner, repo and number from a GitHub pull request URL.
// Owner and repo are kept verbatim so the URL stays a stable record key.
func ParsePRURL(raw string) (PRRef, error) {
	m := prURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return PRRef{}, ErrInvalidURL
	}

	if m[1] == "." || m[1] == ".." || m[2] == "." || m[2] == ".." {
		return PRRef{}, ErrInvalidURL
	}

	number, err := strconv.Atoi(m[3])
	if err != nil || number <= 0 {
		return PRRef{}, ErrInvalidURL
	}

	return PRRef{Owner: m[1], Repo: m[2], Number: number}, nil
}
