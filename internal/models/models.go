package models

import "time"

// Repo represents the crawled facts for a single repository.
type Repo struct {
	Name        string           `json:"name"`
	FullName    string           `json:"full_name"`
	Description string           `json:"description,omitempty"`
	HTMLURL     string           `json:"html_url"`
	Fork        bool             `json:"fork"`
	SizeKB      int              `json:"size_kb"`
	Stars       int              `json:"stars"`
	PushedAt    time.Time        `json:"pushed_at"`
	Languages   map[string]int64 `json:"languages"`
	TopLevel    []string         `json:"top_level,omitempty"`
}

// User holds the profile owner's account facts.
type User struct {
	Login       string    `json:"login"`
	Name        string    `json:"name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Followers   int       `json:"followers"`
	PublicRepos int       `json:"public_repos"`
	CreatedAt   time.Time `json:"created_at"`
}

// ContributionStats aggregates account-wide activity counts.
// Counts come from the search API and are capped at 5000 each.
type ContributionStats struct {
	Commits   int `json:"commits"`
	MergedPRs int `json:"merged_prs"`
	Issues    int `json:"issues"`
}

// DailyActivity is a per-day public event count used for the heatmap.
type DailyActivity struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

// Meta describes a crawl run.
type Meta struct {
	Username  string    `json:"username"`
	CrawledAt time.Time `json:"crawled_at"`
	Version   string    `json:"version"`
	Errors    int       `json:"errors"`
}

// Snapshot is the full output of a crawl, read back by the render phase.
type Snapshot struct {
	Meta     Meta              `json:"meta"`
	User     User              `json:"user"`
	Stats    ContributionStats `json:"stats"`
	Activity []DailyActivity   `json:"activity,omitempty"`
	Repos    []Repo            `json:"repos"`
}

// Tier labels a skill level band.
type Tier string

const (
	TierExpert    Tier = "EXPERT"
	TierAdvanced  Tier = "ADVANCED"
	TierCompetent Tier = "COMPETENT"
	TierNovice    Tier = "NOVICE"
)

// TierFor maps a level to its band: 9+ expert, 7+ advanced, 4+ competent.
func TierFor(level int) Tier {
	switch {
	case level >= 9:
		return TierExpert
	case level >= 7:
		return TierAdvanced
	case level >= 4:
		return TierCompetent
	default:
		return TierNovice
	}
}

// Glyph returns the marker rendered next to the tier label.
func (t Tier) Glyph() string {
	switch t {
	case TierExpert:
		return "⭐"
	case TierAdvanced:
		return "◆"
	case TierCompetent:
		return "●"
	default:
		return "○"
	}
}

// XP is the per-component score breakdown behind a skill level.
type XP struct {
	Volume    float64 `json:"volume"`    // 0-40, log scale on bytes
	Recency   float64 `json:"recency"`   // 0-30, push-date decay
	Breadth   float64 `json:"breadth"`   // 0-20, repo spread
	Dominance float64 `json:"dominance"` // 0-10, byte share
}

// Total sums the XP components.
func (x XP) Total() float64 {
	return x.Volume + x.Recency + x.Breadth + x.Dominance
}

// Skill is one scored language row in the skill tree.
type Skill struct {
	Name       string   `json:"name"`
	Level      int      `json:"level"`
	XP         XP       `json:"xp"`
	Bytes      int64    `json:"bytes"`
	Repos      int      `json:"repos"`
	TopRepo    string   `json:"top_repo"`
	Frameworks []string `json:"frameworks,omitempty"`
	Color      string   `json:"color"`
	Tier       Tier     `json:"tier"`
}
