package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/profileforge/profileforge/internal/scaffold"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write starter config, README and workflow files",
	Long: `Init scaffolds a profile repository: a profileforge.yaml, a README
with the generated-section markers, and a scheduled workflow that runs
"profileforge run". Existing files are left alone unless --force is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	written, err := scaffold.Run(dir, cfg.Username, initForce, logger)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Println("all files exist already; use --force to overwrite")
	}
	return nil
}
