// Package crawler executes the crawl phase: it pulls a user's profile,
// repositories, languages, and activity from the GitHub API and writes a
// snapshot directory for the render phase.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/gh"
	"github.com/profileforge/profileforge/internal/models"
	"github.com/profileforge/profileforge/internal/snapshot"
	"github.com/profileforge/profileforge/internal/version"
)

const (
	// DefaultWorkerCount bounds concurrent per-repo detail fetches.
	DefaultWorkerCount = 10

	// minRepoSizeKB mirrors the grading rule: repositories below this
	// size carry no signal and are not worth two extra API calls.
	minRepoSizeKB = 10

	// commitsPerRepoEstimate backs the fallback when commit search is
	// unavailable for the account.
	commitsPerRepoEstimate = 50
)

// API is the slice of the GitHub client the crawler depends on.
type API interface {
	Viewer(ctx context.Context) (*github.User, error)
	User(ctx context.Context, login string) (*github.User, error)
	ListOwnerRepos(ctx context.Context, login string, limit int, includeForks bool) ([]*github.Repository, error)
	Languages(ctx context.Context, owner, repo string) (map[string]int, error)
	TopLevel(ctx context.Context, owner, repo string) ([]string, error)
	SearchIssueCount(ctx context.Context, query string) (int, error)
	SearchCommitCount(ctx context.Context, query string) (int, error)
	ListRecentEvents(ctx context.Context, login string) ([]*github.Event, error)
}

// Result summarizes a crawl run.
type Result struct {
	Username string
	Repos    int
	Skipped  int
	Errors   int
	Duration time.Duration
}

// Crawler fetches profile data and persists it through a snapshot store.
type Crawler struct {
	api     API
	store   *snapshot.Store
	cfg     *config.Config
	log     *zap.Logger
	workers int
}

// New builds a crawler with the default worker count.
func New(api API, store *snapshot.Store, cfg *config.Config, log *zap.Logger) *Crawler {
	return &Crawler{
		api:     api,
		store:   store,
		cfg:     cfg,
		log:     log,
		workers: DefaultWorkerCount,
	}
}

// Run executes the crawl. Per-repo failures are logged and counted but do
// not fail the run; only account-level fetches are fatal.
func (c *Crawler) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	username, err := c.resolveUsername(ctx)
	if err != nil {
		return Result{}, err
	}
	c.log.Info("crawling profile", zap.String("user", username))

	var (
		user     models.User
		stats    models.ContributionStats
		activity []models.DailyActivity
		repos    []*github.Repository
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.api.User(gctx, username)
		if err != nil {
			return fmt.Errorf("fetch user: %w", err)
		}
		user = convertUser(u)
		return nil
	})
	g.Go(func() error {
		var err error
		repos, err = c.api.ListOwnerRepos(gctx, username, c.cfg.RepoLimit, c.cfg.IncludeForks)
		if err != nil {
			return fmt.Errorf("list repositories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		stats = c.contributionStats(gctx, username)
		return nil
	})
	g.Go(func() error {
		events, err := c.api.ListRecentEvents(gctx, username)
		if err != nil {
			// Heatmap data is optional; an empty activity file just
			// renders an empty grid.
			c.log.Warn("fetching events failed", zap.Error(err))
			return nil
		}
		activity = bucketEvents(events)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if stats.Commits < 0 {
		// Commit search runs before the repo list is known; estimate
		// from the fetched count, not the configured limit.
		stats.Commits = len(repos) * commitsPerRepoEstimate
	}

	queue, skipped := c.filterRepos(repos)
	c.log.Info("processing repositories",
		zap.Int("count", len(queue)),
		zap.Int("skipped", skipped))

	errCount := c.crawlRepos(ctx, username, queue)

	if err := c.store.WriteUser(user); err != nil {
		return Result{}, err
	}
	if err := c.store.WriteStats(stats); err != nil {
		return Result{}, err
	}
	if err := c.store.WriteActivity(activity); err != nil {
		return Result{}, err
	}
	meta := models.Meta{
		Username:  username,
		CrawledAt: time.Now().UTC(),
		Version:   version.Version,
		Errors:    errCount,
	}
	if err := c.store.WriteMeta(meta); err != nil {
		return Result{}, err
	}

	res := Result{
		Username: username,
		Repos:    len(queue) - errCount,
		Skipped:  skipped,
		Errors:   errCount,
		Duration: time.Since(start),
	}
	c.log.Info("crawl complete",
		zap.Int("repos", res.Repos),
		zap.Int("errors", res.Errors),
		zap.Duration("took", res.Duration))
	return res, nil
}

func (c *Crawler) resolveUsername(ctx context.Context) (string, error) {
	if c.cfg.Username != "" {
		return c.cfg.Username, nil
	}
	viewer, err := c.api.Viewer(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve token owner: %w", err)
	}
	if viewer.GetLogin() == "" {
		return "", fmt.Errorf("token owner has no login")
	}
	return viewer.GetLogin(), nil
}

// filterRepos drops excluded and near-empty repositories before dispatch.
func (c *Crawler) filterRepos(repos []*github.Repository) (queue []*github.Repository, skipped int) {
	for _, r := range repos {
		if c.cfg.Excluded(r.GetName()) || r.GetSize() < minRepoSizeKB {
			skipped++
			continue
		}
		queue = append(queue, r)
	}
	return queue, skipped
}

// crawlRepos fans repository detail fetches out over a bounded worker
// pool and returns the number of failures.
func (c *Crawler) crawlRepos(ctx context.Context, owner string, repos []*github.Repository) int {
	jobs := make(chan *github.Repository, len(repos))
	results := make(chan error, len(repos))
	var wg sync.WaitGroup

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for repo := range jobs {
				results <- c.processRepo(ctx, owner, repo)
			}
		}()
	}

	for _, repo := range repos {
		jobs <- repo
	}
	close(jobs)

	wg.Wait()
	close(results)

	errCount := 0
	for err := range results {
		if err != nil {
			c.log.Warn("repository skipped", zap.Error(err))
			errCount++
		}
	}
	return errCount
}

func (c *Crawler) processRepo(ctx context.Context, owner string, repo *github.Repository) error {
	name := repo.GetName()

	langs, err := c.api.Languages(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("languages for %s: %w", name, err)
	}

	topLevel, err := c.api.TopLevel(ctx, owner, name)
	if err != nil && !errors.Is(err, gh.ErrNotFound) {
		return fmt.Errorf("top level for %s: %w", name, err)
	}

	languages := make(map[string]int64, len(langs))
	for lang, bytes := range langs {
		languages[lang] = int64(bytes)
	}

	return c.store.WriteRepo(models.Repo{
		Name:        name,
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		HTMLURL:     repo.GetHTMLURL(),
		Fork:        repo.GetFork(),
		SizeKB:      repo.GetSize(),
		Stars:       repo.GetStargazersCount(),
		PushedAt:    repo.GetPushedAt().Time,
		Languages:   languages,
		TopLevel:    topLevel,
	})
}

// contributionStats gathers account-wide counters, best effort. A failed
// commit search leaves Commits at -1; Run replaces it with a per-repo
// estimate once the fetched repo list is known.
func (c *Crawler) contributionStats(ctx context.Context, username string) models.ContributionStats {
	var stats models.ContributionStats

	if n, err := c.api.SearchIssueCount(ctx, fmt.Sprintf("author:%s type:pr is:merged", username)); err != nil {
		c.log.Warn("merged PR count unavailable", zap.Error(err))
	} else {
		stats.MergedPRs = n
	}

	if n, err := c.api.SearchIssueCount(ctx, fmt.Sprintf("author:%s type:issue", username)); err != nil {
		c.log.Warn("issue count unavailable", zap.Error(err))
	} else {
		stats.Issues = n
	}

	if n, err := c.api.SearchCommitCount(ctx, fmt.Sprintf("author:%s", username)); err != nil {
		c.log.Warn("commit count unavailable, estimating from repo count", zap.Error(err))
		stats.Commits = -1
	} else {
		stats.Commits = n
	}

	return stats
}

func convertUser(u *github.User) models.User {
	return models.User{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		AvatarURL:   u.GetAvatarURL(),
		Followers:   u.GetFollowers(),
		PublicRepos: u.GetPublicRepos(),
		CreatedAt:   u.GetCreatedAt().Time,
	}
}

// bucketEvents folds events into per-day counts, oldest day first.
func bucketEvents(events []*github.Event) []models.DailyActivity {
	counts := make(map[string]int)
	for _, e := range events {
		if e.CreatedAt == nil {
			continue
		}
		day := e.CreatedAt.UTC().Format(time.DateOnly)
		counts[day]++
	}

	days := make([]string, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	sort.Strings(days)

	activity := make([]models.DailyActivity, 0, len(days))
	for _, day := range days {
		activity = append(activity, models.DailyActivity{Date: day, Count: counts[day]})
	}
	return activity
}
