// Package gh wraps the GitHub REST API for profile crawling.
//
// All calls go through a shared retry layer: transient transport errors are
// retried with exponential backoff, primary and secondary rate limits are
// waited out (bounded), and 404s surface as ErrNotFound so callers can
// treat missing resources as skippable.
package gh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	maxAttempts       = 3
	maxRateWait       = 5 * time.Minute
	lowRateThreshold  = 10
	searchCountCap    = 5000
	eventPages        = 3
	userAgent         = "profileforge"
	retryBackoffBase  = time.Second
	defaultAPIPerPage = 100
)

// ErrNotFound marks a 404 from the API.
var ErrNotFound = errors.New("github: not found")

// Client is a thin profile-oriented wrapper over go-github.
type Client struct {
	gh  *github.Client
	log *zap.Logger

	mu   sync.Mutex
	rate github.Rate
}

// New builds an authenticated client. baseURL overrides the API endpoint
// (used by tests); it must end in a trailing slash when set.
func New(ctx context.Context, token, baseURL string, log *zap.Logger) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	gc := github.NewClient(tc)
	gc.UserAgent = userAgent

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		gc.BaseURL = u
	}

	return &Client{gh: gc, log: log}, nil
}

// Viewer returns the authenticated user.
func (c *Client) Viewer(ctx context.Context) (*github.User, error) {
	return call(ctx, c, "viewer", func() (*github.User, *github.Response, error) {
		return c.gh.Users.Get(ctx, "")
	})
}

// User returns the named user.
func (c *Client) User(ctx context.Context, login string) (*github.User, error) {
	return call(ctx, c, "user", func() (*github.User, *github.Response, error) {
		return c.gh.Users.Get(ctx, login)
	})
}

// ListOwnerRepos lists up to limit repositories owned by login, most
// recently updated first. Forks are dropped unless includeForks is set.
func (c *Client) ListOwnerRepos(ctx context.Context, login string, limit int, includeForks bool) ([]*github.Repository, error) {
	opt := &github.RepositoryListOptions{
		Type:        "owner",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: defaultAPIPerPage},
	}

	var repos []*github.Repository
	for len(repos) < limit {
		page, resp, err := callResp(ctx, c, "list repos", func() ([]*github.Repository, *github.Response, error) {
			return c.gh.Repositories.List(ctx, login, opt)
		})
		if err != nil {
			return nil, fmt.Errorf("list repositories: %w", err)
		}
		for _, r := range page {
			if r.GetFork() && !includeForks {
				continue
			}
			repos = append(repos, r)
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	if len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}

// Languages returns the byte count per language for a repository.
func (c *Client) Languages(ctx context.Context, owner, repo string) (map[string]int, error) {
	return call(ctx, c, "languages", func() (map[string]int, *github.Response, error) {
		return c.gh.Repositories.ListLanguages(ctx, owner, repo)
	})
}

// TopLevel returns the file and directory names at the repository root.
func (c *Client) TopLevel(ctx context.Context, owner, repo string) ([]string, error) {
	entries, err := call(ctx, c, "top level", func() ([]*github.RepositoryContent, *github.Response, error) {
		_, dir, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, "", nil)
		return dir, resp, err
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.GetName())
	}
	return names, nil
}

// SearchIssueCount returns the total hit count for an issue/PR search
// query, capped at searchCountCap.
func (c *Client) SearchIssueCount(ctx context.Context, query string) (int, error) {
	result, err := call(ctx, c, "search issues", func() (*github.IssuesSearchResult, *github.Response, error) {
		return c.gh.Search.Issues(ctx, query, &github.SearchOptions{
			ListOptions: github.ListOptions{PerPage: 1},
		})
	})
	if err != nil {
		return 0, err
	}
	return capCount(result.GetTotal()), nil
}

// SearchCommitCount returns the total hit count for a commit search query,
// capped at searchCountCap.
func (c *Client) SearchCommitCount(ctx context.Context, query string) (int, error) {
	result, err := call(ctx, c, "search commits", func() (*github.CommitsSearchResult, *github.Response, error) {
		return c.gh.Search.Commits(ctx, query, &github.SearchOptions{
			ListOptions: github.ListOptions{PerPage: 1},
		})
	})
	if err != nil {
		return 0, err
	}
	return capCount(result.GetTotal()), nil
}

// ListRecentEvents returns the user's recent public events, newest first.
// The API only keeps roughly the last 90 days, which is enough for the
// activity heatmap.
func (c *Client) ListRecentEvents(ctx context.Context, login string) ([]*github.Event, error) {
	var events []*github.Event
	opt := &github.ListOptions{PerPage: defaultAPIPerPage}

	for page := 0; page < eventPages; page++ {
		batch, resp, err := callResp(ctx, c, "list events", func() ([]*github.Event, *github.Response, error) {
			return c.gh.Activity.ListEventsPerformedByUser(ctx, login, true, opt)
		})
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		events = append(events, batch...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return events, nil
}

func capCount(n int) int {
	if n > searchCountCap {
		return searchCountCap
	}
	return n
}

// call runs fn through the retry layer and discards the response.
func call[T any](ctx context.Context, c *Client, op string, fn func() (T, *github.Response, error)) (T, error) {
	v, _, err := callResp(ctx, c, op, fn)
	return v, err
}

// callResp runs fn with rate-limit waits and bounded retries.
func callResp[T any](ctx context.Context, c *Client, op string, fn func() (T, *github.Response, error)) (T, *github.Response, error) {
	var zero T

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.waitIfLow(ctx); err != nil {
			return zero, nil, err
		}

		v, resp, err := fn()
		if resp != nil {
			c.observeRate(resp.Rate)
		}
		if err == nil {
			return v, resp, nil
		}

		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			if werr := c.waitUntil(ctx, rateErr.Rate.Reset.Time, op); werr != nil {
				return zero, nil, werr
			}
			continue
		}

		var abuseErr *github.AbuseRateLimitError
		if errors.As(err, &abuseErr) {
			wait := time.Minute
			if abuseErr.RetryAfter != nil {
				wait = *abuseErr.RetryAfter
			}
			if werr := c.sleep(ctx, boundWait(wait), op); werr != nil {
				return zero, nil, werr
			}
			continue
		}

		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil {
			if respErr.Response.StatusCode == http.StatusNotFound {
				return zero, nil, ErrNotFound
			}
			// Other API-level errors are not retried; the payload
			// will not change on a second attempt.
			return zero, nil, err
		}

		// Transport-level error: back off and retry.
		if attempt < maxAttempts-1 {
			if werr := c.sleep(ctx, backoff(attempt), op); werr != nil {
				return zero, nil, werr
			}
			continue
		}
		return zero, nil, err
	}
	return zero, nil, fmt.Errorf("%s: retries exhausted", op)
}

func backoff(attempt int) time.Duration {
	return retryBackoffBase << attempt
}

func (c *Client) observeRate(r github.Rate) {
	c.mu.Lock()
	c.rate = r
	c.mu.Unlock()
}

// waitIfLow sleeps until the rate window resets when few calls remain.
func (c *Client) waitIfLow(ctx context.Context) error {
	c.mu.Lock()
	r := c.rate
	c.mu.Unlock()

	if r.Limit == 0 || r.Remaining >= lowRateThreshold {
		return nil
	}
	if time.Now().After(r.Reset.Time) {
		return nil
	}
	return c.waitUntil(ctx, r.Reset.Time, "rate window")
}

func (c *Client) waitUntil(ctx context.Context, reset time.Time, op string) error {
	wait := boundWait(time.Until(reset) + time.Second)
	return c.sleep(ctx, wait, op)
}

func (c *Client) sleep(ctx context.Context, d time.Duration, op string) error {
	if d <= 0 {
		return nil
	}
	c.log.Warn("waiting on GitHub rate limit",
		zap.String("op", op),
		zap.Duration("wait", d))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func boundWait(d time.Duration) time.Duration {
	if d > maxRateWait {
		return maxRateWait
	}
	return d
}
