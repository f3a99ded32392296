package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl and render in one pass",
	Long: `Run is the workflow entrypoint: crawl the account, then render the
assets and update the README. Equivalent to "crawl" followed by
"render".`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := crawlOnce(cmd.Context(), cfg); err != nil {
		return err
	}
	return renderOnce(cfg)
}
