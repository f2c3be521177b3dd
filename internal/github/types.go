// Package github is a minimal GitHub REST client for issue-state lookups.
// The flow aggregator uses it to drop incomplete flows whose linked issue
// was closed out from under the session. Lookups are read-only and every
// failure is surfaced as an error so callers can fail open.
package github

import (
	"fmt"
	"net/http"
	"time"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com"

	// DefaultTimeout is the default HTTP request timeout. Callers
	// normally bound individual lookups with a tighter context.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries = 3

	// RetryDelay is the base delay between retries.
	RetryDelay = time.Second
)

// Client provides read access to the GitHub issues API.
type Client struct {
	Token      string       // GitHub personal access token, may be empty for public repos
	Owner      string       // Repository owner (user or org)
	Repo       string       // Repository name
	BaseURL    string       // API base URL (default: https://api.github.com)
	HTTPClient *http.Client // Optional custom HTTP client

	retryInterval time.Duration
}

// Issue is the subset of the GitHub issue payload the lookups need.
type Issue struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	State       string     `json:"state"` // "open" or "closed"
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	HTMLURL     string     `json:"html_url,omitempty"`
	PullRequest *PullRef   `json:"pull_request,omitempty"` // Non-nil if this is a PR
}

// PullRef indicates an issue is actually a pull request. The GitHub
// issues endpoint returns PRs alongside issues; state semantics are the
// same for both.
type PullRef struct {
	URL string `json:"url,omitempty"`
}

// APIError is a non-2xx response from the API. 4xx responses other than
// rate limits are permanent and never retried.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s (status %d)", e.Body, e.StatusCode)
}

// NotFound reports whether the error is a 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
