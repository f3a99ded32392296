// Package cmd wires the profileforge CLI.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/version"
)

var (
	cfgPath  string
	verbose  bool
	jsonLogs bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "profileforge",
	Short:   "GitHub profile README generator",
	Version: version.Version,
	Long: `profileforge crawls your GitHub repositories, scores each language
into a leveled skill, renders SVG cards and rewrites the marked section
of your profile README.

Typical use is a scheduled workflow running "profileforge run".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewDevelopmentConfig()
		if jsonLogs {
			zcfg = zap.NewProductionConfig()
		}
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command under the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "write logs as JSON")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, nil
}
