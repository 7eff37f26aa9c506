// Package config loads analyzer defaults from a TOML file. Every value
// here can be overridden per-invocation with a flag; the file only moves
// the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/suykerbuyk/redlens/internal/dict"
	"github.com/suykerbuyk/redlens/internal/scan"
)

// Config holds all redlens configuration.
type Config struct {
	Scan   ScanConfig   `toml:"scan"`
	Dict   DictConfig   `toml:"dict"`
	Detect DetectConfig `toml:"detect"`
	Render RenderConfig `toml:"render"`
	Watch  WatchConfig  `toml:"watch"`
}

type ScanConfig struct {
	WindowSize int `toml:"window_size"`
	MinMatch   int `toml:"min_match"`
	// Delimiter separates records; "\n", "\t", "\0", or a single
	// character.
	Delimiter string `toml:"delimiter"`
}

type DictConfig struct {
	MinCount int `toml:"min_count"`
}

type DetectConfig struct {
	// Method is score, coverage, percentile, or top.
	Method    string   `toml:"method"`
	Threshold *float64 `toml:"threshold"`
	TopN      int      `toml:"top_n"`
}

type RenderConfig struct {
	// TopEntries caps dictionary listings in reports.
	TopEntries int `toml:"top_entries"`
}

type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// DefaultConfig returns config with the analyzer's built-in defaults.
func DefaultConfig() Config {
	return Config{
		Scan: ScanConfig{
			WindowSize: scan.DefaultWindow,
			MinMatch:   scan.MinMatch,
			Delimiter:  `\n`,
		},
		Dict: DictConfig{
			MinCount: dict.DefaultMinCount,
		},
		Detect: DetectConfig{
			Method: "score",
			TopN:   10,
		},
		Render: RenderConfig{
			TopEntries: 10,
		},
		Watch: WatchConfig{
			DebounceMS: 250,
		},
	}
}

// Load reads config from path when given, otherwise from REDLENS_CONFIG
// or the standard paths, falling back to defaults when no file exists.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths(path) {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		} else if p == path {
			// An explicitly named config file must exist.
			return cfg, fmt.Errorf("config %s: %w", p, err)
		}
	}

	return cfg, nil
}

// DelimiterByte interprets the configured delimiter string.
func (c Config) DelimiterByte() (byte, error) {
	switch c.Scan.Delimiter {
	case `\n`, "\n", "":
		return '\n', nil
	case `\t`, "\t":
		return '\t', nil
	case `\0`:
		return 0, nil
	}
	if len(c.Scan.Delimiter) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single byte", c.Scan.Delimiter)
	}
	return c.Scan.Delimiter[0], nil
}

func configPaths(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	if env := os.Getenv("REDLENS_CONFIG"); env != "" {
		return []string{env}
	}

	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "redlens", "config.toml"))
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "redlens", "config.toml"))
	}
	return paths
}
