package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/matcher"
	"github.com/dl/gogrok/internal/walker"
)

// ColorMode controls when colored output is used.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // color when stdout is a terminal
	ColorAlways                  // always use color
	ColorNever                   // never use color
)

// ParseColorMode parses "auto", "always" or "never".
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return 0, fmt.Errorf("invalid color mode %q", s)
}

// Output formats.
const (
	FormatHTML = "html"
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds all configuration of gogrok. Zero values in a config file
// leave the defaults in place; flags override both.
type Config struct {
	Surround       int    `yaml:"surround" toml:"surround"`
	Limit          int    `yaml:"limit" toml:"limit"`
	QuickScan      bool   `yaml:"quick_scan" toml:"quick_scan"`
	QuickScanBytes int    `yaml:"quick_scan_bytes" toml:"quick_scan_bytes"`
	Engine         string `yaml:"engine" toml:"engine"`
	Emphasis       string `yaml:"emphasis" toml:"emphasis"`
	Color          string `yaml:"color" toml:"color"`
	Format         string `yaml:"format" toml:"format"`
	CountOnly      bool   `yaml:"count" toml:"count"`
	FilesOnly      bool   `yaml:"files" toml:"files"`

	XrefPrefix string `yaml:"xref_prefix" toml:"xref_prefix"`
	MorePrefix string `yaml:"more_prefix" toml:"more_prefix"`
	DiffPrefix string `yaml:"diff_prefix" toml:"diff_prefix"`

	StorePath     string   `yaml:"store" toml:"store"`
	SourceRoot    string   `yaml:"source_root" toml:"source_root"`
	Workers       int      `yaml:"workers" toml:"workers"`
	Include       []string `yaml:"include" toml:"include"`
	Exclude       []string `yaml:"exclude" toml:"exclude"`
	Hidden        bool     `yaml:"hidden" toml:"hidden"`
	NoIgnore      bool     `yaml:"no_ignore" toml:"no_ignore"`
	MmapThreshold int64    `yaml:"mmap_threshold" toml:"mmap_threshold"`
	LogLevel      string   `yaml:"log_level" toml:"log_level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Surround:      0,
		Limit:         10,
		QuickScan:     true,
		Engine:        string(matcher.EngineRE2),
		Color:         "auto",
		Format:        FormatText,
		XrefPrefix:    "/source/xref",
		MorePrefix:    "/source/more",
		DiffPrefix:    "/source",
		StorePath:     ".gogrok.db",
		SourceRoot:    ".",
		MmapThreshold: 64 * 1024,
		LogLevel:      "warn",
	}
}

// Validate checks that the config is valid and returns an error if not.
func (c *Config) Validate() error {
	if _, err := highlight.NewContextArgs(c.Surround, c.Limit); err != nil {
		return err
	}
	if c.QuickScanBytes < 0 {
		return fmt.Errorf("invalid quick scan size: %d", c.QuickScanBytes)
	}
	if _, err := matcher.ParseEngineKind(c.Engine); err != nil {
		return err
	}
	if _, err := ParseColorMode(c.Color); err != nil {
		return err
	}
	switch c.Format {
	case FormatHTML, FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid output format %q", c.Format)
	}
	if c.CountOnly && c.FilesOnly {
		return fmt.Errorf("cannot use --count and --files together")
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", c.Workers)
	}
	if c.SourceRoot == "" {
		return fmt.Errorf("no source root")
	}
	if err := c.Globs().Validate(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// ContextArgs returns the excerpt bounds.
func (c *Config) ContextArgs() highlight.ContextArgs {
	args, _ := highlight.NewContextArgs(c.Surround, c.Limit)
	return args
}

// Globs returns the include and exclude patterns.
func (c *Config) Globs() walker.Globs {
	return walker.Globs{Include: c.Include, Exclude: c.Exclude}
}
