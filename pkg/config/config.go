package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete scanner configuration. It is
// established before scanning begins and never mutated during a scan.
type Config struct {
	Version string        `yaml:"version"`
	Scanner ScannerConfig `yaml:"scanner"`
	Report  ReportConfig  `yaml:"report"`
	Logging LoggingConfig `yaml:"logging"`
}

// ScannerConfig contains scan-specific settings.
type ScannerConfig struct {
	// SearchDir is the root of the recursive scan.
	SearchDir string `yaml:"search_dir"`
	// FilePath, when set, scans a single file instead of a tree.
	FilePath string `yaml:"file_path,omitempty"`
	// ExcludedDirs prunes any directory whose absolute path starts with
	// one of these entries.
	ExcludedDirs []string `yaml:"excluded_dirs"`
	// ExcludePatterns prunes files by glob (doublestar syntax).
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty"`
	// ExcludedPANs are exact card numbers never reported, typically
	// well-known test numbers.
	ExcludedPANs []string `yaml:"excluded_pans,omitempty"`
	// SizeLimit bounds both on-disk artifact size and accumulated
	// decompression output, in bytes.
	SizeLimit int64 `yaml:"size_limit"`
}

// ReportConfig contains report generation settings.
type ReportConfig struct {
	// Directory receives the text report.
	Directory string `yaml:"directory"`
	// JSONDirectory, when set, additionally receives a JSON report.
	JSONDirectory string `yaml:"json_directory,omitempty"`
	// Unmask is accepted for compatibility; masked values are the only
	// form the engine retains, so it is reported as unsupported.
	Unmask bool `yaml:"unmask,omitempty"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"output_file,omitempty"`
}

// DefaultSizeLimit is 1 GiB.
const DefaultSizeLimit int64 = 1_073_741_824

// DefaultExcludedDirs mirrors the directories a data-discovery audit
// never wants to descend into.
func DefaultExcludedDirs() []string {
	return []string{
		`C:\Windows`,
		`C:\Program Files`,
		`C:\Program Files (x86)`,
		"/mnt",
		"/dev",
		"/proc",
	}
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Scanner.SearchDir == "" && c.Scanner.FilePath == "" {
		return fmt.Errorf("either search_dir or file_path must be set")
	}
	if c.Scanner.SizeLimit <= 0 {
		return fmt.Errorf("size limit must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}
	return nil
}

// Finalize re-applies defaults and normalization after programmatic
// overrides (CLI flags) and validates the result.
func (c *Config) Finalize() error {
	c.applyDefaults()
	return c.Validate()
}

// applyDefaults applies default values to missing configuration.
func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Scanner.SearchDir == "" && c.Scanner.FilePath == "" {
		c.Scanner.SearchDir = string(os.PathSeparator)
	}
	if len(c.Scanner.ExcludedDirs) == 0 {
		c.Scanner.ExcludedDirs = DefaultExcludedDirs()
	}
	if c.Scanner.SizeLimit == 0 {
		c.Scanner.SizeLimit = DefaultSizeLimit
	}
	if c.Report.Directory == "" {
		c.Report.Directory = "."
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	c.Scanner.ExcludedDirs = normalizeDirs(c.Scanner.ExcludedDirs)
}

// normalizeDirs lowercases and absolutizes exclusion entries so the
// traversal's prefix match is case- and cwd-insensitive.
func normalizeDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		out = append(out, strings.ToLower(dir))
	}
	return out
}
