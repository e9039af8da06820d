package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/lance13c/mlbstats/internal/browser"
	"github.com/lance13c/mlbstats/internal/logging"
	"github.com/lance13c/mlbstats/internal/output"
	"github.com/lance13c/mlbstats/internal/stats"
)

// DefaultURL is the stats page opened at session start.
const DefaultURL = "https://www.mlb.com/stats/"

// Config represents the complete mlbstats configuration
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Page    PageConfig    `yaml:"page"`
	Extract ExtractConfig `yaml:"extract"`
	Storage StorageConfig `yaml:"storage"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// BrowserConfig holds the automation endpoint settings
type BrowserConfig struct {
	Endpoint       string        `yaml:"endpoint,omitempty"` // DevTools address; empty launches Chrome locally
	URL            string        `yaml:"url"`
	Headless       bool          `yaml:"headless"`
	ExecPath       string        `yaml:"exec_path,omitempty"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// PageConfig holds the waits and selectors used against the stats page
type PageConfig struct {
	BannerTimeout  time.Duration   `yaml:"banner_timeout"`
	BannerInterval time.Duration   `yaml:"banner_interval"`
	ClickTimeout   time.Duration   `yaml:"click_timeout"`
	Selectors      stats.Selectors `yaml:"selectors"`
}

// ExtractConfig holds the defaults for scrape runs
type ExtractConfig struct {
	Variant         string `yaml:"variant"` // standard, expanded or both
	Fetch           string `yaml:"fetch"`   // sequential or concurrent
	CellConcurrency int    `yaml:"cell_concurrency"`
}

// StorageConfig holds the snapshot database location
type StorageConfig struct {
	Database string `yaml:"database"`
}

// OutputConfig holds the default rendering
type OutputConfig struct {
	Format string `yaml:"format"` // auto, table, json, yaml, csv
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			URL:            DefaultURL,
			Headless:       true,
			CommandTimeout: 30 * time.Second,
		},
		Page: PageConfig{
			BannerTimeout:  8 * time.Second,
			BannerInterval: time.Second,
			ClickTimeout:   10 * time.Second,
			Selectors:      stats.DefaultSelectors(),
		},
		Extract: ExtractConfig{
			Variant: "standard",
			Fetch:   stats.Concurrent.String(),
		},
		Storage: StorageConfig{
			Database: filepath.Join(ConfigDirName, "stats.db"),
		},
		Output: OutputConfig{
			Format: string(output.FormatAuto),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	u, err := url.Parse(c.Browser.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewValidationError("browser.url must be an absolute http(s) URL, got " + c.Browser.URL)
	}
	if c.Browser.CommandTimeout <= 0 {
		return NewValidationError("browser.command_timeout must be positive")
	}
	if c.Page.BannerTimeout <= 0 || c.Page.BannerInterval <= 0 || c.Page.ClickTimeout <= 0 {
		return NewValidationError("page timeouts must be positive")
	}
	if c.Page.BannerInterval > c.Page.BannerTimeout {
		return NewValidationError("page.banner_interval must not exceed page.banner_timeout")
	}
	if _, err := c.Variants(); err != nil {
		return NewValidationError(err.Error())
	}
	if _, err := stats.ParseFetchStrategy(c.Extract.Fetch); err != nil {
		return NewValidationError(err.Error())
	}
	if c.Extract.CellConcurrency < 0 {
		return NewValidationError("extract.cell_concurrency must not be negative")
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return NewValidationError(err.Error())
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}

// Variants expands Extract.Variant into the variants to scrape.
func (c *Config) Variants() ([]stats.Variant, error) {
	return ParseVariants(c.Extract.Variant)
}

// ParseVariants accepts "standard", "expanded" or "both".
func ParseVariants(s string) ([]stats.Variant, error) {
	if strings.EqualFold(strings.TrimSpace(s), "both") {
		return []stats.Variant{stats.Standard, stats.Expanded}, nil
	}
	v, err := stats.ParseVariant(s)
	if err != nil {
		return nil, fmt.Errorf("variant must be standard, expanded or both: %w", err)
	}
	return []stats.Variant{v}, nil
}

// VariantSet is the value of a --variant flag: one variant, or both.
type VariantSet []stats.Variant

// Set implements pflag.Value.
func (s *VariantSet) Set(v string) error {
	parsed, err := ParseVariants(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s VariantSet) String() string {
	if len(s) == 2 && s[0] != s[1] {
		return "both"
	}
	names := make([]string, len(s))
	for i, v := range s {
		names[i] = v.String()
	}
	return strings.Join(names, ",")
}

// Type implements pflag.Value.
func (s *VariantSet) Type() string {
	return "variant"
}

// BrowserOptions converts the browser section for browser.Open.
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Endpoint:       c.Browser.Endpoint,
		URL:            c.Browser.URL,
		Headless:       c.Browser.Headless,
		ExecPath:       c.Browser.ExecPath,
		CommandTimeout: c.Browser.CommandTimeout,
	}
}

// PageOptions converts the page section for stats.NewPage.
func (c *Config) PageOptions() stats.PageOptions {
	return stats.PageOptions{
		Selectors:       c.Page.Selectors,
		BannerTimeout:   c.Page.BannerTimeout,
		BannerInterval:  c.Page.BannerInterval,
		ClickTimeout:    c.Page.ClickTimeout,
		CellConcurrency: c.Extract.CellConcurrency,
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
