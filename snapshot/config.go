package snapshot

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domlens/snapdiff"
)

// Config holds all engine configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Layout  LayoutConfig  `yaml:"layout"`
	Diff    DiffConfig    `yaml:"diff"`
	Store   StoreConfig   `yaml:"store"`
}

// BrowserConfig controls the live-capture side.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome.
	Remote string `yaml:"remote"`

	NavTimeout time.Duration `yaml:"nav_timeout"`

	// ResourceBlocking lists resource types to block (images, fonts, media,
	// stylesheets) to keep captures fast.
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// LayoutConfig tunes the linearizer geometry.
type LayoutConfig struct {
	LineThreshold   float64 `yaml:"line_threshold"`
	BacktrackMargin float64 `yaml:"backtrack_margin"`
}

// DiffConfig selects and tunes the diff strategy.
type DiffConfig struct {
	// Strategy is "words" (default) or "patch".
	Strategy string           `yaml:"strategy"`
	Options  snapdiff.Options `yaml:"options"`
}

// StoreConfig selects the baseline store backend.
type StoreConfig struct {
	// Backend is "memory" (default) or "sqlite".
	Backend string `yaml:"backend"`
	DBPath  string `yaml:"db_path"`
}

func (c *Config) defaults() {
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Layout.LineThreshold <= 0 {
		c.Layout.LineThreshold = 10
	}
	if c.Layout.BacktrackMargin <= 0 {
		c.Layout.BacktrackMargin = 20
	}
	if c.Diff.Strategy == "" {
		c.Diff.Strategy = "words"
	}
	c.Diff.Options.Defaults()
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.DBPath == "" {
		c.Store.DBPath = "domlens.db"
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
