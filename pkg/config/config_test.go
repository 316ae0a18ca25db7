package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, DefaultSizeLimit, cfg.Scanner.SizeLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Scanner.ExcludedDirs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
version: "1.0"
scanner:
  search_dir: /srv/shares
  excluded_dirs:
    - /srv/shares/tmp
  excluded_pans:
    - "4111111111111111"
  size_limit: 1048576
report:
  directory: /var/reports
  json_directory: /var/reports/json
logging:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/shares", cfg.Scanner.SearchDir)
	assert.Equal(t, []string{"4111111111111111"}, cfg.Scanner.ExcludedPANs)
	assert.Equal(t, int64(1048576), cfg.Scanner.SizeLimit)
	assert.Equal(t, "/var/reports", cfg.Report.Directory)
	assert.Equal(t, "/var/reports/json", cfg.Report.JSONDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Exclusions are normalized to lowercase absolute paths.
	for _, dir := range cfg.Scanner.ExcludedDirs {
		assert.Equal(t, strings.ToLower(dir), dir)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "scanner: [not a map"},
		{"bad level", "scanner:\n  search_dir: /\nlogging:\n  level: loud\n"},
		{"negative size limit", "scanner:\n  search_dir: /\n  size_limit: -5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.yaml", tt.content)
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadINI(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "panscan.ini", `
search=/srv/data
exclude=/srv/data/tmp,/srv/data/cache
outfile=/var/reports
json=/var/reports/json
unmask=true
excludepans=4111111111111111,378282246310005
`)

	cfg, err := LoadINI(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/data", cfg.Scanner.SearchDir)
	assert.Len(t, cfg.Scanner.ExcludedDirs, 2)
	assert.Equal(t, "/var/reports", cfg.Report.Directory)
	assert.Equal(t, "/var/reports/json", cfg.Report.JSONDirectory)
	assert.True(t, cfg.Report.Unmask)
	assert.Equal(t, []string{"4111111111111111", "378282246310005"}, cfg.Scanner.ExcludedPANs)
}

func TestLoadINI_MissingFile(t *testing.T) {
	_, err := LoadINI(filepath.Join(t.TempDir(), "nope.ini"))
	assert.Error(t, err)
}

func TestValidate_RequiresTarget(t *testing.T) {
	cfg := &Config{}
	cfg.Scanner.SizeLimit = 1
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search_dir or file_path")
}

func TestFinalize_NormalizesFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scanner.SearchDir = "/srv"
	cfg.Scanner.ExcludedDirs = []string{"/SRV/Secret", ""}
	require.NoError(t, cfg.Finalize())

	require.Len(t, cfg.Scanner.ExcludedDirs, 1)
	assert.Equal(t, "/srv/secret", cfg.Scanner.ExcludedDirs[0])
}
