package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/gh"
	"github.com/profileforge/profileforge/internal/models"
	"github.com/profileforge/profileforge/internal/snapshot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAPI serves canned responses. All maps are keyed by repo name and
// must be fully populated before Run; the crawler reads them from
// multiple goroutines.
type fakeAPI struct {
	viewer      *github.User
	user        *github.User
	repos       []*github.Repository
	languages   map[string]map[string]int
	languageErr map[string]error
	topLevel    map[string][]string
	topLevelErr map[string]error
	issueCounts map[string]int
	commitCount int
	commitErr   error
	events      []*github.Event
	eventsErr   error
}

func (f *fakeAPI) Viewer(ctx context.Context) (*github.User, error) {
	return f.viewer, nil
}

func (f *fakeAPI) User(ctx context.Context, login string) (*github.User, error) {
	return f.user, nil
}

func (f *fakeAPI) ListOwnerRepos(ctx context.Context, login string, limit int, includeForks bool) ([]*github.Repository, error) {
	return f.repos, nil
}

func (f *fakeAPI) Languages(ctx context.Context, owner, repo string) (map[string]int, error) {
	if err := f.languageErr[repo]; err != nil {
		return nil, err
	}
	return f.languages[repo], nil
}

func (f *fakeAPI) TopLevel(ctx context.Context, owner, repo string) ([]string, error) {
	if err := f.topLevelErr[repo]; err != nil {
		return nil, err
	}
	return f.topLevel[repo], nil
}

func (f *fakeAPI) SearchIssueCount(ctx context.Context, query string) (int, error) {
	return f.issueCounts[query], nil
}

func (f *fakeAPI) SearchCommitCount(ctx context.Context, query string) (int, error) {
	if f.commitErr != nil {
		return 0, f.commitErr
	}
	return f.commitCount, nil
}

func (f *fakeAPI) ListRecentEvents(ctx context.Context, login string) ([]*github.Event, error) {
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func testConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profileforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func testRepo(name string, sizeKB int) *github.Repository {
	return &github.Repository{
		Name:            github.String(name),
		FullName:        github.String("hubot/" + name),
		HTMLURL:         github.String("https://github.com/hubot/" + name),
		Size:            github.Int(sizeKB),
		StargazersCount: github.Int(3),
		PushedAt:        &github.Timestamp{Time: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func newTestCrawler(t *testing.T, api *fakeAPI, cfg *config.Config) (*Crawler, *snapshot.Store) {
	t.Helper()
	store, err := snapshot.NewStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return New(api, store, cfg, zaptest.NewLogger(t)), store
}

func TestRun_WritesCompleteSnapshot(t *testing.T) {
	day := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		user: &github.User{
			Login:     github.String("hubot"),
			Followers: github.Int(42),
		},
		repos: []*github.Repository{
			testRepo("alpha", 120),
			testRepo("tiny", 2),
			testRepo("old-archive", 80),
		},
		languages: map[string]map[string]int{
			"alpha": {"Go": 120000, "Makefile": 800},
		},
		topLevel: map[string][]string{
			"alpha": {"cmd", "go.mod"},
		},
		issueCounts: map[string]int{
			"author:hubot type:pr is:merged": 17,
			"author:hubot type:issue":        5,
		},
		commitCount: 420,
		events: []*github.Event{
			{Type: github.String("PushEvent"), CreatedAt: &github.Timestamp{Time: day}},
			{Type: github.String("PushEvent"), CreatedAt: &github.Timestamp{Time: day.Add(2 * time.Hour)}},
			{Type: github.String("IssuesEvent"), CreatedAt: &github.Timestamp{Time: day.AddDate(0, 0, 1)}},
		},
	}
	cfg := testConfig(t, "username: hubot\nexclude: [\"*-archive\"]")
	c, store := newTestCrawler(t, api, cfg)

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hubot", res.Username)
	assert.Equal(t, 1, res.Repos)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 0, res.Errors)

	snap, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, "hubot", snap.Meta.Username)
	assert.Equal(t, 0, snap.Meta.Errors)
	assert.False(t, snap.Meta.CrawledAt.IsZero())

	assert.Equal(t, 42, snap.User.Followers)
	assert.Equal(t, models.ContributionStats{Commits: 420, MergedPRs: 17, Issues: 5}, snap.Stats)

	require.Len(t, snap.Repos, 1)
	repo := snap.Repos[0]
	assert.Equal(t, "alpha", repo.Name)
	assert.Equal(t, map[string]int64{"Go": 120000, "Makefile": 800}, repo.Languages)
	assert.Equal(t, []string{"cmd", "go.mod"}, repo.TopLevel)

	assert.Equal(t, []models.DailyActivity{
		{Date: "2026-08-19", Count: 2},
		{Date: "2026-08-20", Count: 1},
	}, snap.Activity)
}

func TestRun_RepoFailureCountedNotFatal(t *testing.T) {
	api := &fakeAPI{
		user:  &github.User{Login: github.String("hubot")},
		repos: []*github.Repository{testRepo("alpha", 120), testRepo("beta", 120)},
		languages: map[string]map[string]int{
			"alpha": {"Go": 50000},
		},
		languageErr: map[string]error{
			"beta": errors.New("boom"),
		},
	}
	cfg := testConfig(t, "username: hubot")
	c, store := newTestCrawler(t, api, cfg)

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Repos)
	assert.Equal(t, 1, res.Errors)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Meta.Errors)
	require.Len(t, snap.Repos, 1)
	assert.Equal(t, "alpha", snap.Repos[0].Name)
}

func TestRun_MissingRootListingTolerated(t *testing.T) {
	api := &fakeAPI{
		user:      &github.User{Login: github.String("hubot")},
		repos:     []*github.Repository{testRepo("alpha", 120)},
		languages: map[string]map[string]int{"alpha": {"Go": 50000}},
		topLevelErr: map[string]error{
			"alpha": gh.ErrNotFound,
		},
	}
	cfg := testConfig(t, "username: hubot")
	c, store := newTestCrawler(t, api, cfg)

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Errors)

	snap, err := store.Load()
	require.NoError(t, err)
	require.Len(t, snap.Repos, 1)
	assert.Empty(t, snap.Repos[0].TopLevel)
}

func TestRun_EventsFailureIsSoft(t *testing.T) {
	api := &fakeAPI{
		user:      &github.User{Login: github.String("hubot")},
		repos:     []*github.Repository{testRepo("alpha", 120)},
		languages: map[string]map[string]int{"alpha": {"Go": 50000}},
		eventsErr: errors.New("events down"),
	}
	cfg := testConfig(t, "username: hubot")
	c, store := newTestCrawler(t, api, cfg)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Activity)
}

func TestRun_CommitSearchFallback(t *testing.T) {
	// Two repos come back from the listing even though repo_limit allows
	// four and one of the two is too small to crawl; the estimate goes by
	// the fetched count.
	api := &fakeAPI{
		user:      &github.User{Login: github.String("hubot")},
		repos:     []*github.Repository{testRepo("alpha", 120), testRepo("tiny", 2)},
		languages: map[string]map[string]int{"alpha": {"Go": 50000}},
		commitErr: errors.New("commit search disabled"),
	}
	cfg := testConfig(t, "username: hubot\nrepo_limit: 4")
	c, store := newTestCrawler(t, api, cfg)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2*commitsPerRepoEstimate, snap.Stats.Commits)
}

func TestResolveUsername(t *testing.T) {
	t.Run("config wins", func(t *testing.T) {
		cfg := testConfig(t, "username: hubot")
		c, _ := newTestCrawler(t, &fakeAPI{}, cfg)

		name, err := c.resolveUsername(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "hubot", name)
	})

	t.Run("falls back to token owner", func(t *testing.T) {
		t.Setenv("GITHUB_REPOSITORY_OWNER", "")
		cfg := testConfig(t, "")
		api := &fakeAPI{viewer: &github.User{Login: github.String("tokenbot")}}
		c, _ := newTestCrawler(t, api, cfg)

		name, err := c.resolveUsername(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tokenbot", name)
	})
}

func TestBucketEvents(t *testing.T) {
	at := func(s string) *github.Timestamp {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return &github.Timestamp{Time: ts}
	}

	events := []*github.Event{
		{CreatedAt: at("2026-08-20T23:30:00Z")},
		{CreatedAt: at("2026-08-18T08:00:00Z")},
		{CreatedAt: at("2026-08-20T01:00:00Z")},
		{CreatedAt: nil},
	}

	got := bucketEvents(events)
	assert.Equal(t, []models.DailyActivity{
		{Date: "2026-08-18", Count: 1},
		{Date: "2026-08-20", Count: 2},
	}, got)
}
