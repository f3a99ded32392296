package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for the config unless told
// otherwise.
const DefaultPath = "profileforge.yaml"

const (
	defaultTokenEnv   = "GITHUB_TOKEN"
	defaultRepoLimit  = 40
	defaultSkillLimit = 10
	defaultDataDir    = "data"
	defaultAssetsDir  = "assets"
	defaultReadme     = "README.md"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Badge declares one static badge rendered into the README section.
// The URL may contain a {user} placeholder.
type Badge struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
	Link  string `yaml:"link,omitempty"`
}

// Config holds the full profileforge configuration.
type Config struct {
	Username     string                         `yaml:"username,omitempty"`
	TokenEnv     string                         `yaml:"token_env"`
	RepoLimit    int                            `yaml:"repo_limit"`
	SkillLimit   int                            `yaml:"skill_limit"`
	IncludeForks bool                           `yaml:"include_forks"`
	Exclude      []string                       `yaml:"exclude,omitempty"`
	DataDir      string                         `yaml:"data_dir"`
	AssetsDir    string                         `yaml:"assets_dir"`
	Readme       string                         `yaml:"readme"`
	Badges       []Badge                        `yaml:"badges,omitempty"`
	Frameworks   map[string]map[string][]string `yaml:"frameworks,omitempty"`
	Colors       map[string]string              `yaml:"colors,omitempty"`

	excludeGlobs []glob.Glob
}

// Load reads a config file and validates it. A missing file is not an
// error: the defaults describe a usable setup for the token owner.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	content, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fall through to defaults.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TokenEnv == "" {
		c.TokenEnv = defaultTokenEnv
	}
	if c.RepoLimit == 0 {
		c.RepoLimit = defaultRepoLimit
	}
	if c.SkillLimit == 0 {
		c.SkillLimit = defaultSkillLimit
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.AssetsDir == "" {
		c.AssetsDir = defaultAssetsDir
	}
	if c.Readme == "" {
		c.Readme = defaultReadme
	}
	if c.Username == "" {
		c.Username = os.Getenv("GITHUB_REPOSITORY_OWNER")
	}
}

func (c *Config) validate() error {
	if c.RepoLimit < 1 {
		return fmt.Errorf("repo_limit must be >= 1")
	}
	if c.SkillLimit < 1 {
		return fmt.Errorf("skill_limit must be >= 1")
	}

	c.excludeGlobs = c.excludeGlobs[:0]
	for _, pattern := range c.Exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		c.excludeGlobs = append(c.excludeGlobs, g)
	}

	for i, b := range c.Badges {
		if b.Label == "" {
			return fmt.Errorf("badge %d: label is required", i+1)
		}
		if !strings.HasPrefix(b.URL, "https://") {
			return fmt.Errorf("badge %q: url must be https", b.Label)
		}
	}

	for lang, color := range c.Colors {
		if !colorPattern.MatchString(color) {
			return fmt.Errorf("color for %s must look like #rrggbb, got %q", lang, color)
		}
	}

	return nil
}

// Token resolves the API token from the configured environment variable.
func (c *Config) Token() string {
	return os.Getenv(c.TokenEnv)
}

// Excluded reports whether a repository name matches an exclude pattern.
func (c *Config) Excluded(name string) bool {
	for _, g := range c.excludeGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
