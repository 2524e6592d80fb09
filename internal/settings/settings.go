// Package settings loads optional server-wide settings from
// ~/.trailguide/config.yaml. A missing file means defaults; a broken
// file is an error so misconfiguration never fails silently.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings are the server-wide knobs.
type Settings struct {
	// DataDir holds server-global state (the completion-history db).
	DataDir string `yaml:"data_dir"`
	// SamplingMaxTokens caps sampling responses requested from the client.
	SamplingMaxTokens int `yaml:"sampling_max_tokens"`
	// StallWindowDays is the trailing window for stall detection.
	StallWindowDays int `yaml:"stall_window_days"`
}

// Default returns the built-in settings.
func Default() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		DataDir:           filepath.Join(home, ".trailguide"),
		SamplingMaxTokens: 2000,
		StallWindowDays:   7,
	}
}

// Load reads settings from path, filling unset fields with defaults.
// A nonexistent file yields pure defaults. An empty path uses
// <default data dir>/config.yaml.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		path = filepath.Join(s.DataDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing %s: %w", path, err)
	}

	if s.DataDir == "" {
		s.DataDir = Default().DataDir
	}
	if s.SamplingMaxTokens <= 0 {
		s.SamplingMaxTokens = Default().SamplingMaxTokens
	}
	if s.StallWindowDays <= 0 {
		s.StallWindowDays = Default().StallWindowDays
	}
	return s, nil
}
