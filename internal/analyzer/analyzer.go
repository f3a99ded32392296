// Package analyzer turns a crawl snapshot into ranked language skills.
//
// Scoring is absolute, not curved: each language earns XP from volume,
// recency, breadth and dominance, and the resulting level is capped hard
// for single-repo or low-volume languages so a profile with one small
// script never reads as expertise.
package analyzer

import (
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/models"
)

const (
	// Per-repo language slices below this are ignored as vendored noise.
	minLanguageBytes = 500
	// Languages below this total never become a skill row.
	minSkillBytes = 2000

	recencyFloor      = 0.2
	recencyWindowDays = 730

	volumePivot  = 3.3 // log10 bytes where volume XP starts accruing
	volumeScale  = 15
	volumeCapXP  = 40
	recencyCapXP = 30
	breadthStep  = 4
	breadthCapXP = 20
	dominanceXP  = 10

	levelMin = 1
	levelMax = 10

	singleRepoLevelCap = 6
	smallSkillBytes    = 15000
	smallSkillLevelCap = 3
	tinySkillBytes     = 5000

	maxFrameworks = 3
)

// Analyzer scores snapshots. Keyword and color tables from the config
// are merged over the builtin ones at construction time.
type Analyzer struct {
	cfg      *config.Config
	log      *zap.Logger
	now      func() time.Time
	keywords map[string]map[string][]string
	colors   map[string]string
}

func New(cfg *config.Config, log *zap.Logger) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		keywords: mergeKeywords(cfg.Frameworks),
		colors:   mergeColors(cfg.Colors),
	}
}

// Summary is the scored view of a snapshot.
type Summary struct {
	Skills     []models.Skill
	Languages  []LanguageShare
	TotalBytes int64
}

// LanguageShare is one slice of the overall language distribution,
// including languages too small to make the skill tree.
type LanguageShare struct {
	Name  string  `json:"name"`
	Bytes int64   `json:"bytes"`
	Share float64 `json:"share"`
	Color string  `json:"color"`
}

// accum collects per-language facts across repos before scoring.
type accum struct {
	bytes      int64
	repos      int
	recencySum float64
	frameworks map[string]int
	topRepo    string
	topBytes   int64
}

// Analyze aggregates every repository in the snapshot and returns the
// ranked skills plus the full language distribution.
func (a *Analyzer) Analyze(snap *models.Snapshot) *Summary {
	acc := make(map[string]*accum)
	for i := range snap.Repos {
		a.addRepo(acc, &snap.Repos[i])
	}
	sum := a.score(acc)
	a.log.Debug("snapshot analyzed",
		zap.Int("repositories", len(snap.Repos)),
		zap.Int("languages", len(sum.Languages)),
		zap.Int("skills", len(sum.Skills)))
	return sum
}

func (a *Analyzer) addRepo(acc map[string]*accum, repo *models.Repo) {
	text := strings.ToLower(repo.Description + " " + repo.Name)
	rec := a.recency(repo.PushedAt)
	for lang, size := range repo.Languages {
		if size < minLanguageBytes {
			continue
		}
		s := acc[lang]
		if s == nil {
			s = &accum{frameworks: make(map[string]int)}
			acc[lang] = s
		}
		s.bytes += size
		s.repos++
		s.recencySum += rec
		if size > s.topBytes {
			s.topRepo, s.topBytes = repo.Name, size
		}
		for _, fw := range a.detect(lang, text, repo.TopLevel) {
			s.frameworks[fw]++
		}
	}
}

// recency decays linearly from 1.0 to the floor over two years without
// a push. A missing push date scores the floor.
func (a *Analyzer) recency(pushed time.Time) float64 {
	if pushed.IsZero() {
		return recencyFloor
	}
	days := a.now().UTC().Sub(pushed).Hours() / 24
	return math.Min(1, math.Max(recencyFloor, 1-days/recencyWindowDays))
}

func (a *Analyzer) score(acc map[string]*accum) *Summary {
	names := make([]string, 0, len(acc))
	var total int64
	for name, s := range acc {
		names = append(names, name)
		total += s.bytes
	}
	sort.Strings(names)

	sum := &Summary{TotalBytes: total}
	if total == 0 {
		return sum
	}

	for _, name := range names {
		s := acc[name]
		share := float64(s.bytes) / float64(total)
		sum.Languages = append(sum.Languages, LanguageShare{
			Name:  name,
			Bytes: s.bytes,
			Share: share,
			Color: a.color(name),
		})
		if s.bytes < minSkillBytes {
			continue
		}
		sum.Skills = append(sum.Skills, a.skill(name, s, share))
	}

	sort.Slice(sum.Languages, func(i, j int) bool {
		li, lj := sum.Languages[i], sum.Languages[j]
		if li.Bytes != lj.Bytes {
			return li.Bytes > lj.Bytes
		}
		return li.Name < lj.Name
	})
	sort.Slice(sum.Skills, func(i, j int) bool {
		si, sj := sum.Skills[i], sum.Skills[j]
		if si.Level != sj.Level {
			return si.Level > sj.Level
		}
		if si.Bytes != sj.Bytes {
			return si.Bytes > sj.Bytes
		}
		return si.Name < sj.Name
	})
	if len(sum.Skills) > a.cfg.SkillLimit {
		sum.Skills = sum.Skills[:a.cfg.SkillLimit]
	}
	return sum
}

func (a *Analyzer) skill(name string, s *accum, share float64) models.Skill {
	xp := models.XP{
		Volume:    clamp((math.Log10(float64(s.bytes))-volumePivot)*volumeScale, 0, volumeCapXP),
		Recency:   s.recencySum / float64(s.repos) * recencyCapXP,
		Breadth:   math.Min(breadthCapXP, float64(s.repos)*breadthStep),
		Dominance: share * dominanceXP,
	}

	level := int(xp.Total() / 10)
	if s.repos == 1 {
		level = min(level, singleRepoLevelCap)
	}
	if s.bytes < smallSkillBytes {
		level = min(level, smallSkillLevelCap)
	}
	if s.bytes < tinySkillBytes {
		level = levelMin
	}
	level = max(levelMin, min(levelMax, level))

	return models.Skill{
		Name:       name,
		Level:      level,
		XP:         xp,
		Bytes:      s.bytes,
		Repos:      s.repos,
		TopRepo:    s.topRepo,
		Frameworks: topFrameworks(s.frameworks),
		Color:      a.color(name),
		Tier:       models.TierFor(level),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// topFrameworks ranks detected frameworks by repo count and keeps the
// strongest three. Ties break alphabetically so output is stable.
func topFrameworks(counts map[string]int) []string {
	if len(counts) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > maxFrameworks {
		names = names[:maxFrameworks]
	}
	return names
}
