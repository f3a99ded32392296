package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/profileforge/profileforge/internal/analyzer"
	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/readme"
	"github.com/profileforge/profileforge/internal/render"
	"github.com/profileforge/profileforge/internal/snapshot"
	"github.com/profileforge/profileforge/internal/watch"
)

var (
	renderWatch  bool
	renderData   string
	renderOut    string
	renderReadme string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render SVG assets and update the README from the last crawl",
	Long: `Render scores the stored snapshot, writes the SVG assets and rewrites
the marked section of the README. With --watch it keeps running and
re-renders whenever the snapshot or the config file changes.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderWatch, "watch", false, "re-render whenever the snapshot or config changes")
	renderCmd.Flags().StringVar(&renderData, "data", "", "override the configured data_dir")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "override the configured assets_dir")
	renderCmd.Flags().StringVar(&renderReadme, "readme", "", "override the configured readme path")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadRenderConfig()
	if err != nil {
		return err
	}

	if err := renderOnce(cfg); err != nil {
		return err
	}
	if !renderWatch {
		return nil
	}

	// The config is reloaded per pass so edits take effect without a
	// restart. The watch set itself stays fixed at startup.
	w, err := watch.New(cfg.DataDir, func(context.Context) error {
		cfg, err := loadRenderConfig()
		if err != nil {
			return err
		}
		return renderOnce(cfg)
	}, logger)
	if err != nil {
		return err
	}
	if err := w.WatchFile(cfgPath); err != nil {
		logger.Warn("config file not watched", zap.String("path", cfgPath), zap.Error(err))
	}
	if err := w.Start(cmd.Context()); err != nil {
		return err
	}
	defer w.Stop()

	<-cmd.Context().Done()
	return nil
}

func loadRenderConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if renderData != "" {
		cfg.DataDir = renderData
	}
	if renderOut != "" {
		cfg.AssetsDir = renderOut
	}
	if renderReadme != "" {
		cfg.Readme = renderReadme
	}
	return cfg, nil
}

// renderOnce loads the snapshot, scores it and writes the assets plus
// the README block. A README without markers is reported, not fatal:
// the assets are still usable on their own.
func renderOnce(cfg *config.Config) error {
	store, err := snapshot.NewStore(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	snap, err := store.Load()
	if err != nil {
		return err
	}

	sum := analyzer.New(cfg, logger).Analyze(snap)
	if _, err := render.New(cfg, logger).RenderAll(snap, sum); err != nil {
		return err
	}

	_, err = readme.New(cfg, logger).Update(snap, sum)
	switch {
	case errors.Is(err, readme.ErrNoMarkers):
		logger.Warn("readme has no markers, section not written",
			zap.String("path", cfg.Readme),
			zap.String("start", readme.StartMarker),
			zap.String("end", readme.EndMarker),
			zap.String("hint", "add the markers or run profileforge init"))
		return nil
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("readme not found, section not written",
			zap.String("path", cfg.Readme))
		return nil
	}
	return err
}
