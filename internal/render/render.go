// Package render produces the profile SVG assets from a crawl snapshot.
//
// Templates are embedded in the binary and view models are fully built
// before execution, so the templates stay free of logic. Files are
// written atomically: README embeds reference them by path, and a half
// written SVG would show up as a broken image.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/profileforge/profileforge/internal/analyzer"
	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Asset file names, relative to the configured assets directory.
const (
	SkillTreeAsset = "skill-tree.svg"
	StatsCardAsset = "stats-card.svg"
	DonutAsset     = "language-donut.svg"
	HeatmapAsset   = "contribution-heatmap.svg"
)

// Renderer writes SVG assets for a snapshot.
type Renderer struct {
	cfg *config.Config
	log *zap.Logger
	now func() time.Time
}

func New(cfg *config.Config, log *zap.Logger) *Renderer {
	return &Renderer{cfg: cfg, log: log, now: time.Now}
}

// RenderAll writes every asset into the assets directory and returns
// the paths written, in render order.
func (r *Renderer) RenderAll(snap *models.Snapshot, sum *analyzer.Summary) ([]string, error) {
	if err := os.MkdirAll(r.cfg.AssetsDir, 0755); err != nil {
		return nil, fmt.Errorf("create assets dir %s: %w", r.cfg.AssetsDir, err)
	}

	assets := []struct {
		name string
		tmpl string
		view any
	}{
		{SkillTreeAsset, "skilltree.svg.tmpl", r.skillTreeView(snap, sum)},
		{StatsCardAsset, "statscard.svg.tmpl", r.statsCardView(snap)},
		{DonutAsset, "donut.svg.tmpl", r.donutView(sum)},
		{HeatmapAsset, "heatmap.svg.tmpl", r.heatmapView(snap)},
	}

	written := make([]string, 0, len(assets))
	for _, a := range assets {
		path := filepath.Join(r.cfg.AssetsDir, a.name)
		if err := renderFile(path, a.tmpl, a.view); err != nil {
			return written, err
		}
		r.log.Info("asset written", zap.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

func renderFile(path, name string, view any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
