package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/profileforge/profileforge/internal/analyzer"
	"github.com/profileforge/profileforge/internal/models"
	"github.com/profileforge/profileforge/internal/snapshot"
)

var skillsJSON bool

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Print the scored skill table from the last crawl",
	RunE:  runSkills,
}

func init() {
	skillsCmd.Flags().BoolVar(&skillsJSON, "json", false, "print skills as JSON")
	rootCmd.AddCommand(skillsCmd)
}

var (
	skillNameStyle = lipgloss.NewStyle().Bold(true)
	skillDimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tierStyles     = map[models.Tier]lipgloss.Style{
		models.TierExpert:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f92672")).Bold(true),
		models.TierAdvanced:  lipgloss.NewStyle().Foreground(lipgloss.Color("#a626a4")),
		models.TierCompetent: lipgloss.NewStyle().Foreground(lipgloss.Color("#61afef")),
		models.TierNovice:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
)

func runSkills(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := snapshot.NewStore(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	snap, err := store.Load()
	if err != nil {
		return err
	}
	sum := analyzer.New(cfg, logger).Analyze(snap)

	if skillsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum.Skills)
	}

	if len(sum.Skills) == 0 {
		fmt.Println("no skills scored yet; run crawl first")
		return nil
	}

	fmt.Printf("%s • %d repositories • %s of code\n\n",
		snap.Meta.Username, len(snap.Repos), fmtKB(sum.TotalBytes))

	for _, s := range sum.Skills {
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(strings.Repeat("█", s.Level)) +
			skillDimStyle.Render(strings.Repeat("░", 10-s.Level))
		tier := tierStyles[s.Tier].Render(fmt.Sprintf("%-11s", s.Tier.Glyph()+" "+string(s.Tier)))
		detail := fmt.Sprintf("%s in %d repos", fmtKB(s.Bytes), s.Repos)
		if len(s.Frameworks) > 0 {
			detail += "  " + strings.Join(s.Frameworks, " • ")
		}
		fmt.Printf("%s  %s  LVL %2d  %s  %s\n",
			skillNameStyle.Render(fmt.Sprintf("%-12s", s.Name)),
			bar, s.Level, tier, skillDimStyle.Render(detail))
	}
	return nil
}

func fmtKB(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1f MB", float64(n)/1_000_000)
	}
	return fmt.Sprintf("%.0f KB", float64(n)/1_000)
}
