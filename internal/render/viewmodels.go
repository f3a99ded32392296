package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/profileforge/profileforge/internal/analyzer"
	"github.com/profileforge/profileforge/internal/models"
)

// Skill tree geometry. The card grows one row per skill.
const (
	treeWidth     = 900
	treeBaseH     = 200
	treeRowH      = 95
	treeFirstRowY = 150
	barMaxWidth   = 350
)

var tierColors = map[models.Tier]string{
	models.TierExpert:    "#f92672",
	models.TierAdvanced:  "#a626a4",
	models.TierCompetent: "#61afef",
	models.TierNovice:    "#8b949e",
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// SkillTreeView backs the skill tree template. All strings are already
// XML-escaped.
type SkillTreeView struct {
	Width     int
	Height    int
	Generated string
	Commits   string
	PRs       string
	Rows      []SkillRow
}

type SkillRow struct {
	Y          int
	Name       string
	Color      string
	Level      int
	BarWidth   int
	TierLabel  string
	TierColor  string
	TopRepo    string
	Frameworks string
}

func (r *Renderer) skillTreeView(snap *models.Snapshot, sum *analyzer.Summary) SkillTreeView {
	view := SkillTreeView{
		Width:     treeWidth,
		Height:    treeBaseH + treeRowH*len(sum.Skills),
		Generated: r.now().UTC().Format("January 2006"),
		Commits:   comma(snap.Stats.Commits),
		PRs:       comma(snap.Stats.MergedPRs),
	}

	y := treeFirstRowY
	for _, s := range sum.Skills {
		frameworks := "Core"
		if len(s.Frameworks) > 0 {
			frameworks = strings.Join(s.Frameworks, " • ")
		}
		view.Rows = append(view.Rows, SkillRow{
			Y:          y,
			Name:       xmlEscaper.Replace(s.Name),
			Color:      s.Color,
			Level:      s.Level,
			BarWidth:   s.Level * barMaxWidth / 10,
			TierLabel:  s.Tier.Glyph() + " " + string(s.Tier),
			TierColor:  tierColors[s.Tier],
			TopRepo:    xmlEscaper.Replace(s.TopRepo),
			Frameworks: xmlEscaper.Replace(frameworks),
		})
		y += treeRowH
	}
	return view
}

// StatsCardView backs the stats card template: a 2x2 grid of counters.
type StatsCardView struct {
	Cells []StatCell
}

type StatCell struct {
	X     int
	Y     int
	Value string
	Label string
}

func (r *Renderer) statsCardView(snap *models.Snapshot) StatsCardView {
	stars := 0
	for _, repo := range snap.Repos {
		stars += repo.Stars
	}
	return StatsCardView{Cells: []StatCell{
		{X: 40, Y: 80, Value: comma(snap.Stats.Commits), Label: "Commits"},
		{X: 240, Y: 80, Value: comma(snap.Stats.MergedPRs), Label: "Pull Requests"},
		{X: 40, Y: 160, Value: comma(snap.Stats.Issues), Label: "Issues"},
		{X: 240, Y: 160, Value: comma(stars), Label: "Stars Earned"},
	}}
}

// Donut geometry. Slices are stroked ring arcs around the center.
const (
	donutCX     = 170.0
	donutCY     = 180.0
	donutR      = 90.0
	donutMin    = 0.015 // shares below this fold into Other
	donutMax    = 8     // legend rows before Other
	legendX     = 340
	legendTopY  = 64
	legendRowH  = 26
	otherColor  = "#30363d"
	otherLabel  = "Other"
	minArcSweep = 0.01 // radians; smaller arcs collapse to a point
)

// DonutView backs the language donut. Full is set instead of Slices
// when a single language covers the whole ring, because an arc whose
// endpoints coincide renders as nothing.
type DonutView struct {
	Slices     []DonutSlice
	Full       *DonutSlice
	CenterText string
	CenterSub  string
	Legend     []LegendEntry
}

type DonutSlice struct {
	Path  string
	Color string
}

type LegendEntry struct {
	Y       int
	Color   string
	Name    string
	Percent string
}

func (r *Renderer) donutView(sum *analyzer.Summary) DonutView {
	view := DonutView{
		CenterText: humanBytes(sum.TotalBytes),
		CenterSub:  "of code",
	}
	if sum.TotalBytes == 0 {
		view.CenterText = "no data"
		view.CenterSub = ""
		return view
	}

	shown := make([]analyzer.LanguageShare, 0, donutMax)
	var otherShare float64
	var otherBytes int64
	for i, ls := range sum.Languages {
		if i < donutMax && ls.Share >= donutMin {
			shown = append(shown, ls)
			continue
		}
		otherShare += ls.Share
		otherBytes += ls.Bytes
	}
	if otherBytes > 0 {
		shown = append(shown, analyzer.LanguageShare{
			Name:  otherLabel,
			Bytes: otherBytes,
			Share: otherShare,
			Color: otherColor,
		})
	}

	if len(shown) == 1 {
		view.Full = &DonutSlice{Color: shown[0].Color}
	} else {
		angle := -math.Pi / 2
		for _, ls := range shown {
			sweep := ls.Share * 2 * math.Pi
			if sweep < minArcSweep {
				angle += sweep
				continue
			}
			view.Slices = append(view.Slices, DonutSlice{
				Path:  arcPath(donutCX, donutCY, donutR, angle, angle+sweep),
				Color: ls.Color,
			})
			angle += sweep
		}
	}

	y := legendTopY
	for _, ls := range shown {
		view.Legend = append(view.Legend, LegendEntry{
			Y:       y,
			Color:   ls.Color,
			Name:    xmlEscaper.Replace(ls.Name),
			Percent: fmt.Sprintf("%.1f%%", ls.Share*100),
		})
		y += legendRowH
	}
	return view
}

// arcPath builds an SVG arc from angle a0 to a1 (radians, clockwise,
// zero pointing right). The sweep flag stays 1 because SVG's y axis
// points down.
func arcPath(cx, cy, r, a0, a1 float64) string {
	x0 := cx + r*math.Cos(a0)
	y0 := cy + r*math.Sin(a0)
	x1 := cx + r*math.Cos(a1)
	y1 := cy + r*math.Sin(a1)
	large := 0
	if a1-a0 > math.Pi {
		large = 1
	}
	return fmt.Sprintf("M %.2f %.2f A %.2f %.2f 0 %d 1 %.2f %.2f", x0, y0, r, r, large, x1, y1)
}

// Heatmap geometry: 26 week columns, one row per weekday, GitHub's
// green scale.
const (
	heatWeeks   = 26
	heatOriginX = 76
	heatOriginY = 52
	heatCell    = 16
	heatStride  = 20
)

var heatScale = [5]string{"#161b22", "#0e4429", "#006d32", "#26a641", "#39d353"}

// HeatmapView backs the contribution heatmap template.
type HeatmapView struct {
	Cells  []HeatCell
	Months []MonthLabel
	Days   []DayLabel
	Scale  []ScaleSwatch
}

type HeatCell struct {
	X     int
	Y     int
	Color string
}

type MonthLabel struct {
	X    int
	Text string
}

type DayLabel struct {
	Y    int
	Text string
}

type ScaleSwatch struct {
	X     int
	Color string
}

func (r *Renderer) heatmapView(snap *models.Snapshot) HeatmapView {
	counts := make(map[string]int, len(snap.Activity))
	maxCount := 0
	for _, day := range snap.Activity {
		counts[day.Date] = day.Count
		if day.Count > maxCount {
			maxCount = day.Count
		}
	}

	today := r.now().UTC().Truncate(24 * time.Hour)
	// Back up to the Sunday opening the current week, then 25 more weeks.
	start := today.AddDate(0, 0, -int(today.Weekday())-(heatWeeks-1)*7)

	var view HeatmapView
	lastMonth := time.Month(0)
	for col := 0; col < heatWeeks; col++ {
		weekStart := start.AddDate(0, 0, col*7)
		if m := weekStart.Month(); m != lastMonth {
			view.Months = append(view.Months, MonthLabel{
				X:    heatOriginX + col*heatStride,
				Text: weekStart.Format("Jan"),
			})
			lastMonth = m
		}
		for row := 0; row < 7; row++ {
			day := weekStart.AddDate(0, 0, row)
			if day.After(today) {
				continue
			}
			view.Cells = append(view.Cells, HeatCell{
				X:     heatOriginX + col*heatStride,
				Y:     heatOriginY + row*heatStride,
				Color: heatScale[heatLevel(counts[day.Format(time.DateOnly)], maxCount)],
			})
		}
	}

	for _, d := range []struct {
		row  int
		text string
	}{{1, "Mon"}, {3, "Wed"}, {5, "Fri"}} {
		view.Days = append(view.Days, DayLabel{
			Y:    heatOriginY + d.row*heatStride + heatCell - 3,
			Text: d.text,
		})
	}
	for i, c := range heatScale {
		view.Scale = append(view.Scale, ScaleSwatch{X: 32 + i*heatStride, Color: c})
	}
	return view
}

// heatLevel buckets a day count into the five step scale relative to
// the busiest day in the window.
func heatLevel(count, maxCount int) int {
	if count <= 0 || maxCount <= 0 {
		return 0
	}
	l := 1 + int(float64(count)/float64(maxCount)*3.99)
	if l > 4 {
		l = 4
	}
	return l
}

func comma(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func humanBytes(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1f MB", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.0f KB", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
