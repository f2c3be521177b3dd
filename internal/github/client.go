package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewClient creates a new GitHub client for one repository.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		Token:   token,
		Owner:   owner,
		Repo:    repo,
		BaseURL: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		retryInterval: RetryDelay,
	}
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	out := *c
	out.HTTPClient = httpClient
	return &out
}

// WithBaseURL returns a new client with a custom base URL (for testing
// or GitHub Enterprise).
func (c *Client) WithBaseURL(baseURL string) *Client {
	out := *c
	out.BaseURL = baseURL
	return &out
}

// WithRetryInterval returns a new client with a custom base retry delay.
func (c *Client) WithRetryInterval(d time.Duration) *Client {
	out := *c
	out.retryInterval = d
	return &out
}

// repoPath returns the "owner/repo" path segment.
func (c *Client) repoPath() string {
	return c.Owner + "/" + c.Repo
}

const maxResponseBytes = 4 * 1024 * 1024

// doRequest performs an authenticated request with exponential-backoff
// retries. Transport errors, 5xx responses, and rate limits are retried;
// other 4xx responses fail immediately.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var out []byte
	op := func() error {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if c.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			out = data
			return nil
		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
			return fmt.Errorf("rate limited (status %d)", resp.StatusCode)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(&APIError{StatusCode: resp.StatusCode, Body: string(data)})
		default:
			return fmt.Errorf("server error (status %d)", resp.StatusCode)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, MaxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchIssue retrieves a single issue by number.
func (c *Client) FetchIssue(ctx context.Context, number int) (*Issue, error) {
	urlStr := c.BaseURL + "/repos/" + c.repoPath() + "/issues/" + strconv.Itoa(number)
	respBody, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue #%d: %w", number, err)
	}

	var issue Issue
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse issue response: %w", err)
	}
	return &issue, nil
}

// GetIssueState returns "open" or "closed" for an issue number in the
// client's repository.
func (c *Client) GetIssueState(ctx context.Context, number int) (string, error) {
	issue, err := c.FetchIssue(ctx, number)
	if err != nil {
		return "", err
	}
	return issue.State, nil
}

// IsIssueClosed reports whether the referenced issue is closed. The ref
// may be "123", "#123", or "owner/repo#123"; a bare number uses the
// client's repository. Errors mean "could not determine", never closed.
func (c *Client) IsIssueClosed(ctx context.Context, issueRef string) (bool, error) {
	owner, repo, number, err := ParseIssueRef(issueRef)
	if err != nil {
		return false, err
	}

	target := c
	if owner != "" {
		scoped := *c
		scoped.Owner = owner
		scoped.Repo = repo
		target = &scoped
	}
	state, err := target.GetIssueState(ctx, number)
	if err != nil {
		return false, err
	}
	return state == "closed", nil
}

// ParseIssueRef splits an issue reference into its parts. Owner and repo
// are empty for bare references like "123" or "#123".
func ParseIssueRef(ref string) (owner, repo string, number int, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", 0, fmt.Errorf("empty issue reference")
	}

	numPart := ref
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		numPart = ref[i+1:]
		if repoPart := ref[:i]; repoPart != "" {
			var ok bool
			owner, repo, ok = strings.Cut(repoPart, "/")
			if !ok || owner == "" || repo == "" {
				return "", "", 0, fmt.Errorf("invalid issue reference %q", ref)
			}
		}
	}

	number, aerr := strconv.Atoi(numPart)
	if aerr != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid issue number in %q", ref)
	}
	return owner, repo, number, nil
}
