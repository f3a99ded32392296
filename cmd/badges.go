package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/profileforge/profileforge/internal/readme"
)

var badgesJSON bool

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "List badges found in the README plus the configured badge row",
	RunE:  runBadges,
}

func init() {
	badgesCmd.Flags().BoolVar(&badgesJSON, "json", false, "print badges as JSON")
	rootCmd.AddCommand(badgesCmd)
}

func runBadges(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(cfg.Readme)
	if err != nil {
		return fmt.Errorf("read %s: %w", cfg.Readme, err)
	}
	found := readme.Extract(content)

	if badgesJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	fmt.Printf("%d badges in %s\n", len(found), cfg.Readme)
	insecure := 0
	for _, b := range found {
		label := b.Alt
		if label == "" {
			label = "(no alt text)"
		}
		note := ""
		if !strings.HasPrefix(b.ImageURL, "https://") {
			note = "  [not https]"
			insecure++
		}
		fmt.Printf("  %-28s %s%s\n", label, b.ImageURL, note)
	}
	if insecure > 0 {
		fmt.Printf("\n%d badge image(s) not served over https\n", insecure)
	}

	username := cfg.Username
	if username == "" {
		username = "{user}"
	}
	if row := readme.New(cfg, logger).BadgeRow(username); row != "" {
		fmt.Printf("\nconfigured badge row:\n%s\n", row)
	}
	return nil
}
