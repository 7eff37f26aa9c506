package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the redlens config directory path.
// Uses $XDG_CONFIG_HOME/redlens if set, otherwise ~/.config/redlens.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "redlens")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "redlens")
}

// WriteDefault writes a config.toml with the built-in defaults spelled
// out. Returns the config file path. Skips if config.toml already exists.
func WriteDefault() (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	d := DefaultConfig()
	content := fmt.Sprintf(`[scan]
window_size = %d
min_match = %d
delimiter = '%s'

[dict]
min_count = %d

[detect]
method = %q
top_n = %d

[render]
top_entries = %d

[watch]
debounce_ms = %d
`, d.Scan.WindowSize, d.Scan.MinMatch, d.Scan.Delimiter,
		d.Dict.MinCount, d.Detect.Method, d.Detect.TopN,
		d.Render.TopEntries, d.Watch.DebounceMS)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}
