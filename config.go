package avis

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/avis/internal/browser"
	"github.com/hazyhaar/avis/internal/extract"
)

// Config configures the scrape-and-summarize pipeline. Selector defaults
// target the review widget on Google Maps place pages; other sites
// override them via the config file.
type Config struct {
	Browser browser.Config `yaml:"browser"`
	Extract extract.Config `yaml:"extract"`

	// StaticFirst enables a plain HTTP fetch before launching a browser.
	// When the static HTML already carries the reviews the launch cost is
	// skipped; otherwise the pipeline escalates to a live session.
	StaticFirst bool `yaml:"static_first"`

	// FetchTimeout bounds the static HTTP fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	UserAgent string `yaml:"user_agent"`
}

func (c *Config) defaults() {
	if c.Browser.MarkerSelector == "" {
		c.Browser.MarkerSelector = "div.m6QErb"
	}
	if c.Extract.ContainerSelector == "" {
		c.Extract.ContainerSelector = "div.jftiEf"
	}
	if c.Extract.MoreSelector == "" {
		c.Extract.MoreSelector = "button.w8nwRe"
	}
	if c.Extract.TextSelector == "" {
		c.Extract.TextSelector = "span.wiI7pd"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 20 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "avis/1.0"
	}
}

// LoadConfig reads a YAML configuration file. Missing values fall back to
// the same defaults New applies.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("avis: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("avis: parse config: %w", err)
	}
	return &cfg, nil
}
