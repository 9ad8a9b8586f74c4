// Package config loads the optional ralph-doctor TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is used for the default config directory.
	AppName = "ralph-doctor"
	// ConfigFile is the name of the config file inside the config directory.
	ConfigFile = "config.toml"
)

// Config represents the configuration stored in config.toml.
type Config struct {
	Probe ProbeConfig `toml:"probe"`
	Log   LogConfig   `toml:"log"`
	Watch WatchConfig `toml:"watch"`
}

// ProbeConfig contains settings for the external probes.
type ProbeConfig struct {
	// CommandTimeoutSeconds bounds every external command.
	// Defaults to 5 seconds when not specified.
	CommandTimeoutSeconds int `toml:"command_timeout_seconds"`

	// RequiredExecutables lists host executables checked in verbose mode.
	// Defaults to ["timeout"].
	RequiredExecutables []string `toml:"required_executables"`

	// DependencyCacheDir is the per-service folder measured for disk usage.
	// Defaults to "node_modules".
	DependencyCacheDir string `toml:"dependency_cache_dir"`
}

// CommandTimeout returns the per-command timeout.
func (p *ProbeConfig) CommandTimeout() time.Duration {
	if p.CommandTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.CommandTimeoutSeconds) * time.Second
}

// GetRequiredExecutables returns the executables to check.
func (p *ProbeConfig) GetRequiredExecutables() []string {
	if len(p.RequiredExecutables) == 0 {
		return []string{"timeout"}
	}
	return p.RequiredExecutables
}

// GetDependencyCacheDir returns the dependency cache folder name.
func (p *ProbeConfig) GetDependencyCacheDir() string {
	if p.DependencyCacheDir == "" {
		return "node_modules"
	}
	return p.DependencyCacheDir
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// File is the debug log path. Empty disables logging.
	File string `toml:"file"`

	// MaxLineWidth truncates session log lines wider than this.
	// 0 disables truncation.
	MaxLineWidth int `toml:"max_line_width"`
}

// WatchConfig contains watch mode configuration.
type WatchConfig struct {
	// DebounceMs coalesces bursts of file events. Defaults to 500.
	DebounceMs int `toml:"debounce_ms"`
}

// Debounce returns the watch debounce duration.
func (w *WatchConfig) Debounce() time.Duration {
	if w.DebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// DefaultPath returns the default config location:
// $XDG_CONFIG_HOME/ralph-doctor/config.toml, falling back to ~/.config.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, ConfigFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName, ConfigFile)
}

// Load reads the config. An explicit path must exist; when path is empty the
// default location is tried and a missing file yields the zero Config.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return &Config{}, nil
		}
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return &cfg, nil
}
