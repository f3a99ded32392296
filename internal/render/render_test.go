package render

import (
	"encoding/xml"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/profileforge/profileforge/internal/analyzer"
	"github.com/profileforge/profileforge/internal/config"
	"github.com/profileforge/profileforge/internal/models"
)

// 2026-08-25 is a Tuesday; the heatmap window then opens on Sunday
// March 1st, which keeps the month label expectations simple.
var fixedNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profileforge.yaml")
	content := "username: hubot\nassets_dir: " + filepath.Join(dir, "assets") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	r := New(cfg, zaptest.NewLogger(t))
	r.now = func() time.Time { return fixedNow }
	return r
}

func testSummary() *analyzer.Summary {
	return &analyzer.Summary{
		TotalBytes: 150000,
		Skills: []models.Skill{
			{Name: "Go", Level: 8, Bytes: 90000, Repos: 3, TopRepo: "forge",
				Color: "#00ADD8", Tier: models.TierAdvanced, Frameworks: []string{"Gin"}},
			{Name: "Python", Level: 4, Bytes: 60000, Repos: 2, TopRepo: "lab",
				Color: "#3572A5", Tier: models.TierCompetent},
		},
		Languages: []analyzer.LanguageShare{
			{Name: "Go", Bytes: 90000, Share: 0.6, Color: "#00ADD8"},
			{Name: "Python", Bytes: 60000, Share: 0.4, Color: "#3572A5"},
		},
	}
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Stats: models.ContributionStats{Commits: 1234, MergedPRs: 56, Issues: 7},
		Repos: []models.Repo{{Name: "forge", Stars: 12}, {Name: "lab", Stars: 3}},
		Activity: []models.DailyActivity{
			{Date: "2026-08-24", Count: 4},
			{Date: "2026-08-20", Count: 1},
		},
	}
}

func requireWellFormedXML(t *testing.T, data []byte) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
	}
}

func TestRenderAll(t *testing.T) {
	r := testRenderer(t)
	written, err := r.RenderAll(testSnapshot(), testSummary())
	require.NoError(t, err)

	want := []string{SkillTreeAsset, StatsCardAsset, DonutAsset, HeatmapAsset}
	require.Len(t, written, len(want))
	for i, name := range want {
		assert.Equal(t, filepath.Join(r.cfg.AssetsDir, name), written[i])
	}

	for _, path := range written {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		requireWellFormedXML(t, data)
		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err), "temp file left behind for %s", path)
	}

	tree, err := os.ReadFile(written[0])
	require.NoError(t, err)
	s := string(tree)
	assert.Contains(t, s, `viewBox="0 0 900 390"`, "two rows grow the card to 200+2*95")
	assert.Contains(t, s, "Harsh Evaluation • August 2026")
	assert.Contains(t, s, "1,234 Commits • 56 PRs")
	assert.Contains(t, s, "◆ ADVANCED")
	assert.Contains(t, s, `width="280"`, "level 8 fills 8/10 of the 350px bar")
	assert.Contains(t, s, "Top: forge")
	assert.Contains(t, s, ">Gin<")

	card, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Contains(t, string(card), "Stars Earned")
	assert.Contains(t, string(card), ">15<", "stars summed across repos")
}

func TestSkillTreeView(t *testing.T) {
	r := testRenderer(t)
	view := r.skillTreeView(testSnapshot(), testSummary())

	assert.Equal(t, 900, view.Width)
	assert.Equal(t, 390, view.Height)
	assert.Equal(t, "August 2026", view.Generated)
	require.Len(t, view.Rows, 2)

	assert.Equal(t, 150, view.Rows[0].Y)
	assert.Equal(t, 245, view.Rows[1].Y)
	assert.Equal(t, 280, view.Rows[0].BarWidth)
	assert.Equal(t, "◆ ADVANCED", view.Rows[0].TierLabel)
	assert.Equal(t, "#a626a4", view.Rows[0].TierColor)
	assert.Equal(t, "Gin", view.Rows[0].Frameworks)
	assert.Equal(t, "Core", view.Rows[1].Frameworks, "no frameworks falls back to Core")
}

func TestSkillTreeView_EscapesNames(t *testing.T) {
	r := testRenderer(t)
	sum := &analyzer.Summary{
		TotalBytes: 10000,
		Skills: []models.Skill{{
			Name: "C&C", Level: 2, TopRepo: "a<b", Tier: models.TierNovice,
		}},
	}

	view := r.skillTreeView(&models.Snapshot{}, sum)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "C&amp;C", view.Rows[0].Name)
	assert.Equal(t, "a&lt;b", view.Rows[0].TopRepo)
}

func TestStatsCardView(t *testing.T) {
	r := testRenderer(t)
	view := r.statsCardView(testSnapshot())

	require.Len(t, view.Cells, 4)
	assert.Equal(t, StatCell{X: 40, Y: 80, Value: "1,234", Label: "Commits"}, view.Cells[0])
	assert.Equal(t, StatCell{X: 240, Y: 80, Value: "56", Label: "Pull Requests"}, view.Cells[1])
	assert.Equal(t, StatCell{X: 40, Y: 160, Value: "7", Label: "Issues"}, view.Cells[2])
	assert.Equal(t, StatCell{X: 240, Y: 160, Value: "15", Label: "Stars Earned"}, view.Cells[3])
}

func TestDonutView(t *testing.T) {
	r := testRenderer(t)

	t.Run("two slices", func(t *testing.T) {
		view := r.donutView(testSummary())
		require.Len(t, view.Slices, 2)
		assert.Nil(t, view.Full)

		// First arc starts at the top of the ring.
		assert.True(t, strings.HasPrefix(view.Slices[0].Path, "M 170.00 90.00 A 90.00 90.00 0 1 1 "),
			"got %q", view.Slices[0].Path)
		assert.Equal(t, "#00ADD8", view.Slices[0].Color)

		assert.Equal(t, "150 KB", view.CenterText)
		require.Len(t, view.Legend, 2)
		assert.Equal(t, "Go", view.Legend[0].Name)
		assert.Equal(t, "60.0%", view.Legend[0].Percent)
		assert.Equal(t, 64, view.Legend[0].Y)
		assert.Equal(t, 90, view.Legend[1].Y)
	})

	t.Run("single language renders a full ring", func(t *testing.T) {
		view := r.donutView(&analyzer.Summary{
			TotalBytes: 5000,
			Languages:  []analyzer.LanguageShare{{Name: "Go", Bytes: 5000, Share: 1, Color: "#00ADD8"}},
		})
		require.NotNil(t, view.Full)
		assert.Equal(t, "#00ADD8", view.Full.Color)
		assert.Empty(t, view.Slices)
	})

	t.Run("tiny shares fold into Other", func(t *testing.T) {
		view := r.donutView(&analyzer.Summary{
			TotalBytes: 100000,
			Languages: []analyzer.LanguageShare{
				{Name: "Go", Bytes: 60000, Share: 0.6, Color: "#00ADD8"},
				{Name: "Python", Bytes: 39000, Share: 0.39, Color: "#3572A5"},
				{Name: "Makefile", Bytes: 1000, Share: 0.01, Color: "#888888"},
			},
		})

		require.Len(t, view.Legend, 3)
		last := view.Legend[len(view.Legend)-1]
		assert.Equal(t, "Other", last.Name)
		assert.Equal(t, "1.0%", last.Percent)
		assert.Equal(t, "#30363d", last.Color)
	})

	t.Run("overflow folds into Other", func(t *testing.T) {
		sum := &analyzer.Summary{TotalBytes: 100000}
		for i := 0; i < 10; i++ {
			sum.Languages = append(sum.Languages, analyzer.LanguageShare{
				Name: string(rune('A' + i)), Bytes: 10000, Share: 0.1, Color: "#888888",
			})
		}

		view := r.donutView(sum)
		require.Len(t, view.Legend, 9, "eight languages plus Other")
		assert.Equal(t, "Other", view.Legend[8].Name)
		assert.Equal(t, "20.0%", view.Legend[8].Percent)
	})

	t.Run("empty snapshot", func(t *testing.T) {
		view := r.donutView(&analyzer.Summary{})
		assert.Equal(t, "no data", view.CenterText)
		assert.Empty(t, view.Slices)
		assert.Empty(t, view.Legend)
	})
}

func TestArcPath(t *testing.T) {
	// Quarter arc from the top to the right of the ring.
	got := arcPath(170, 180, 90, -math.Pi/2, 0)
	assert.Equal(t, "M 170.00 90.00 A 90.00 90.00 0 0 1 260.00 180.00", got)

	// Sweeps past half the circle set the large-arc flag.
	got = arcPath(170, 180, 90, -math.Pi/2, math.Pi)
	assert.Contains(t, got, " 0 1 1 ")
}

func TestHeatmapView(t *testing.T) {
	r := testRenderer(t)

	t.Run("window and layout", func(t *testing.T) {
		view := r.heatmapView(testSnapshot())

		// 25 complete weeks plus Sunday through Tuesday of the current one.
		assert.Len(t, view.Cells, 25*7+3)

		texts := make([]string, 0, len(view.Months))
		for _, m := range view.Months {
			texts = append(texts, m.Text)
		}
		assert.Equal(t, []string{"Mar", "Apr", "May", "Jun", "Jul", "Aug"}, texts)
		assert.Equal(t, 76, view.Months[0].X)
		assert.Equal(t, 176, view.Months[1].X)

		require.Len(t, view.Days, 3)
		assert.Equal(t, DayLabel{Y: 85, Text: "Mon"}, view.Days[0])
		assert.Equal(t, DayLabel{Y: 125, Text: "Wed"}, view.Days[1])
		assert.Equal(t, DayLabel{Y: 165, Text: "Fri"}, view.Days[2])

		require.Len(t, view.Scale, 5)
		assert.Equal(t, 32, view.Scale[0].X)
		assert.Equal(t, 112, view.Scale[4].X)
	})

	t.Run("counts pick the color", func(t *testing.T) {
		view := r.heatmapView(testSnapshot())

		colorAt := func(x, y int) string {
			for _, c := range view.Cells {
				if c.X == x && c.Y == y {
					return c.Color
				}
			}
			t.Fatalf("no cell at %d,%d", x, y)
			return ""
		}

		// Aug 24 is the Monday of the last column, Aug 20 the Thursday
		// of the one before it.
		lastCol := heatOriginX + 25*heatStride
		assert.Equal(t, heatScale[4], colorAt(lastCol, heatOriginY+1*heatStride), "busiest day takes the top color")
		assert.Equal(t, heatScale[1], colorAt(lastCol-heatStride, heatOriginY+4*heatStride))
		assert.Equal(t, heatScale[0], colorAt(heatOriginX, heatOriginY), "quiet day stays dark")
	})

	t.Run("no activity renders an all dark grid", func(t *testing.T) {
		view := r.heatmapView(&models.Snapshot{})
		for _, c := range view.Cells {
			assert.Equal(t, heatScale[0], c.Color)
		}
	})
}

func TestHeatLevel(t *testing.T) {
	assert.Equal(t, 0, heatLevel(0, 5))
	assert.Equal(t, 0, heatLevel(3, 0))
	assert.Equal(t, 1, heatLevel(1, 5))
	assert.Equal(t, 2, heatLevel(2, 5))
	assert.Equal(t, 3, heatLevel(3, 5))
	assert.Equal(t, 4, heatLevel(4, 5))
	assert.Equal(t, 4, heatLevel(5, 5))
	assert.Equal(t, 4, heatLevel(9, 5), "counts above the max stay capped")
}

func TestComma(t *testing.T) {
	assert.Equal(t, "0", comma(0))
	assert.Equal(t, "999", comma(999))
	assert.Equal(t, "1,000", comma(1000))
	assert.Equal(t, "1,234,567", comma(1234567))
	assert.Equal(t, "-42", comma(-42))
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "0 B", humanBytes(0))
	assert.Equal(t, "999 B", humanBytes(999))
	assert.Equal(t, "45 KB", humanBytes(45000))
	assert.Equal(t, "1.5 MB", humanBytes(1500000))
}
