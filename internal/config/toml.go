// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Experiment ExperimentConfig `toml:"experiment"`
	Display    DisplayConfig    `toml:"display"`
	Output     OutputConfig     `toml:"output"`
	Trigger    TriggerConfig    `toml:"trigger"`
	Log        LogConfig        `toml:"log"`
}

// ExperimentConfig maps the session schedule. Nil fields are unset.
type ExperimentConfig struct {
	SamplingHz            *int      `toml:"sampling-hz"`
	Sessions              []int     `toml:"sessions"`
	Perturbation          []bool    `toml:"perturbation"`
	Feedback              []bool    `toml:"feedback"`
	Degree                *float64  `toml:"degree"`
	RestMs                *int      `toml:"rest-ms"`
	StationarityWindow    *int      `toml:"stationarity-window"`
	StationarityTolerance *float64  `toml:"stationarity-tolerance"`
	TargetAngles          []float64 `toml:"target-angles"`
	ShuffleTargets        *bool     `toml:"shuffle-targets"`
	Seed                  *int64    `toml:"seed"`
}

// DisplayConfig maps marker sizes and the terminal cell scale.
type DisplayConfig struct {
	TargetDistance *float64 `toml:"target-distance"`
	TargetRadius   *float64 `toml:"target-radius"`
	CursorRadius   *float64 `toml:"cursor-radius"`
	CellWidth      *float64 `toml:"cell-width"`
	CellHeight     *float64 `toml:"cell-height"`
	ShowRawCursor  *bool    `toml:"show-raw-cursor"`
	SyncMarker     *bool    `toml:"sync-marker"`
	SyncFlashMs    *int     `toml:"sync-flash-ms"`
}

// OutputConfig maps where trial files are written.
type OutputConfig struct {
	Dir        *string `toml:"dir"`
	Prefix     *string `toml:"prefix"`
	Timestamps *bool   `toml:"timestamps"`
	SyncColumn *bool   `toml:"sync-column"`
}

// TriggerConfig maps the optional serial trigger.
type TriggerConfig struct {
	Device    *string `toml:"device"`
	Baud      *int    `toml:"baud"`
	StartCode *int    `toml:"start-code"`
	StopCode  *int    `toml:"stop-code"`
}

// LogConfig maps the log file settings.
type LogConfig struct {
	Path  *string `toml:"path"`
	Debug *bool   `toml:"debug"`
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
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
