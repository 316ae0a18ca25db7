package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadINI reads the legacy INI configuration format and overlays it on
// the defaults. Keys live in the DEFAULT section: search, file, exclude,
// outfile, json, unmask, excludepans.
func LoadINI(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	if search := v.GetString("default.search"); search != "" {
		config.Scanner.SearchDir = search
	}
	if file := v.GetString("default.file"); file != "" {
		config.Scanner.FilePath = file
	}
	if exclude := v.GetString("default.exclude"); exclude != "" {
		config.Scanner.ExcludedDirs = splitList(exclude)
	}
	if outfile := v.GetString("default.outfile"); outfile != "" {
		config.Report.Directory = outfile
	}
	if jsonDir := v.GetString("default.json"); jsonDir != "" {
		config.Report.JSONDirectory = jsonDir
	}
	if v.IsSet("default.unmask") {
		config.Report.Unmask = v.GetBool("default.unmask")
	}
	if pans := v.GetString("default.excludepans"); pans != "" {
		config.Scanner.ExcludedPANs = splitList(pans)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
