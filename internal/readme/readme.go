// Package readme maintains the generated block of a profile README.
//
// Everything between the start and end markers belongs to the tool and
// is rewritten on every update; everything outside them belongs to the
// user and is preserved byte for byte.
package readme

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/profileforge/profileforge/internal/analyzer"
	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/models"
	"github.com/profileforge/profileforge/internal/render"
)

const (
	StartMarker = "<!-- profileforge:start -->"
	EndMarker   = "<!-- profileforge:end -->"

	topSkillCount = 3
)

// ErrNoMarkers reports a README without the marker pair. The block is
// never appended blindly; the user decides where it lives.
var ErrNoMarkers = errors.New("readme markers not found")

// Updater rewrites the generated README block.
type Updater struct {
	cfg *config.Config
	log *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Updater {
	return &Updater{cfg: cfg, log: log}
}

// Update replaces the generated block in the configured README and
// reports whether the file changed on disk.
func (u *Updater) Update(snap *models.Snapshot, sum *analyzer.Summary) (bool, error) {
	content, err := os.ReadFile(u.cfg.Readme)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", u.cfg.Readme, err)
	}

	updated, err := Splice(content, []byte(u.Block(snap, sum)))
	if err != nil {
		return false, fmt.Errorf("%s: %w", u.cfg.Readme, err)
	}
	if bytes.Equal(content, updated) {
		u.log.Info("readme unchanged", zap.String("path", u.cfg.Readme))
		return false, nil
	}

	tmp := u.cfg.Readme + ".tmp"
	if err := os.WriteFile(tmp, updated, 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, u.cfg.Readme); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("rename %s: %w", u.cfg.Readme, err)
	}
	u.log.Info("readme updated", zap.String("path", u.cfg.Readme))
	return true, nil
}

// Splice swaps the text between the markers for block, leaving the
// markers and the surrounding document untouched.
func Splice(content, block []byte) ([]byte, error) {
	start := bytes.Index(content, []byte(StartMarker))
	end := bytes.Index(content, []byte(EndMarker))
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoMarkers
	}

	var out bytes.Buffer
	out.Grow(len(content) + len(block))
	out.Write(content[:start+len(StartMarker)])
	out.WriteByte('\n')
	out.Write(block)
	out.Write(content[end:])
	return out.Bytes(), nil
}

// Block builds the markdown between the markers. It depends only on the
// snapshot and summary, so the same crawl always produces the same
// README.
func (u *Updater) Block(snap *models.Snapshot, sum *analyzer.Summary) string {
	var b strings.Builder

	if row := u.BadgeRow(snap.Meta.Username); row != "" {
		b.WriteString(row)
		b.WriteString("\n\n")
	}

	if len(sum.Skills) > 0 {
		names := make([]string, 0, topSkillCount)
		for i, s := range sum.Skills {
			if i == topSkillCount {
				break
			}
			names = append(names, s.Name)
		}
		fmt.Fprintf(&b, "**Top skills:** %s\n\n", strings.Join(names, " • "))
	}

	assets := u.cfg.AssetsDir
	fmt.Fprintf(&b, "![Skill Tree](%s)\n\n", path.Join(assets, render.SkillTreeAsset))
	fmt.Fprintf(&b, "![Contribution Stats](%s)\n![Language Mix](%s)\n\n",
		path.Join(assets, render.StatsCardAsset), path.Join(assets, render.DonutAsset))
	fmt.Fprintf(&b, "![Recent Activity](%s)\n\n", path.Join(assets, render.HeatmapAsset))
	fmt.Fprintf(&b, "<sub>Updated %s • %d repositories analyzed</sub>\n",
		snap.Meta.CrawledAt.UTC().Format("January 2, 2006"), len(snap.Repos))
	return b.String()
}

// BadgeRow renders the configured badges as one markdown paragraph.
// The {user} placeholder expands to the profile username.
func (u *Updater) BadgeRow(username string) string {
	if len(u.cfg.Badges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(u.cfg.Badges))
	for _, badge := range u.cfg.Badges {
		img := fmt.Sprintf("![%s](%s)", badge.Label, expandUser(badge.URL, username))
		if badge.Link != "" {
			img = fmt.Sprintf("[%s](%s)", img, expandUser(badge.Link, username))
		}
		parts = append(parts, img)
	}
	return strings.Join(parts, "\n")
}

func expandUser(s, username string) string {
	return strings.ReplaceAll(s, "{user}", username)
}
