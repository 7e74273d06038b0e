// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Stats    StatsConfig    `toml:"stats"`
	Autosave AutosaveConfig `toml:"autosave"`
}

// StatsConfig maps storage and report settings.
type StatsConfig struct {
	BaseDir *string `toml:"base-dir"`
	Top     *int    `toml:"top"`
	Workers *int    `toml:"workers"`
	Index   *bool   `toml:"index"`
}

// AutosaveConfig maps save trigger settings. Durations are in seconds.
type AutosaveConfig struct {
	Every    *int     `toml:"every"`
	Interval *float64 `toml:"interval"`
	MinGap   *float64 `toml:"min-gap"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Template is written by `bongostats config` when no file exists yet.
const Template = `# bongostats configuration

[stats]
# Folder holding DATA/<year>/<MM>.<DD>.<YY>.json.
# base-dir = "~/.local/share/bongostats"
# Number of ranked inputs in the wrapped report.
# top = 10
# Parallel file reads when building a report (0 = number of CPUs).
# workers = 0
# Mirror day totals into history.db for "bongostats history".
# index = true

[autosave]
# Save after this many recorded events.
# every = 100
# Periodic save, in seconds.
# interval = 60
# Minimum seconds between event-triggered saves.
# min-gap = 2
`
