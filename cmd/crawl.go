package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/crawler"
	"github.com/profileforge/profileforge/internal/gh"
	"github.com/profileforge/profileforge/internal/snapshot"
)

var (
	crawlUser  string
	crawlLimit int
	crawlData  string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch repository data into the snapshot directory",
	Long: `Crawl lists the profile owner's repositories, fetches languages and
top-level contents for each over a worker pool, and writes the snapshot
as JSON files. Repositories that fail are logged and skipped; the crawl
still completes.`,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlUser, "user", "", "crawl this user instead of the configured one")
	crawlCmd.Flags().IntVar(&crawlLimit, "limit", 0, "override the configured repo_limit")
	crawlCmd.Flags().StringVar(&crawlData, "data", "", "override the configured data_dir")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if crawlUser != "" {
		cfg.Username = crawlUser
	}
	if crawlLimit > 0 {
		cfg.RepoLimit = crawlLimit
	}
	if crawlData != "" {
		cfg.DataDir = crawlData
	}
	_, err = crawlOnce(cmd.Context(), cfg)
	return err
}

func crawlOnce(ctx context.Context, cfg *config.Config) (crawler.Result, error) {
	token := cfg.Token()
	if token == "" {
		logger.Warn("no token set, using anonymous API limits", zap.String("env", cfg.TokenEnv))
	}

	api, err := gh.New(ctx, token, "", logger)
	if err != nil {
		return crawler.Result{}, err
	}
	store, err := snapshot.NewStore(cfg.DataDir, logger)
	if err != nil {
		return crawler.Result{}, err
	}
	return crawler.New(api, store, cfg, logger).Run(ctx)
}
