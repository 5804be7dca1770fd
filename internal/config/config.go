// SPDX-License-Identifier: Apache-2.0

// Package config handles application settings: built-in defaults, the
// optional YAML settings file under the user config directory, and the host
// list supplied on the command line or in a hosts file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default knobs. CLI flags and the settings file override these.
const (
	DefaultMaxConcurrent    = 0 // 0 means auto-derive from terminal height
	DefaultAutoExitDelay    = 300 * time.Second
	DefaultConnectTimeout   = 30 * time.Second
	DefaultConnectRetries   = 1
	DefaultConnectBackoff   = 2 * time.Second
	DefaultBuildTimeout     = 2 * time.Hour
	DefaultIdleTimeout      = 10 * time.Minute
	DefaultCleanupGrace     = 5 * time.Second
	DefaultCacheRetention   = 30
	DefaultCacheKeepBuilds  = 5
	DefaultOutputBufferCap  = 500
	DefaultMinimizeTimeout  = 30 * time.Second
	DefaultEventChannelSize = 256
)

// ColorMode selects how color output is decided.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Settings is the merged run configuration. Zero values mean "use default";
// Normalize fills those in.
type Settings struct {
	Tarball       string   `yaml:"-"`
	Hosts         []string `yaml:"-"`
	MaxConcurrent int      `yaml:"max_concurrent,omitempty"`

	AutoExitDelay time.Duration `yaml:"auto_exit_delay,omitempty"`
	NoAutoExit    bool          `yaml:"no_auto_exit,omitempty"`

	CacheFile      string   `yaml:"cache_file,omitempty"`
	CacheRetention int      `yaml:"cache_retention_days,omitempty"`
	CacheKeep      int      `yaml:"cache_keep_builds,omitempty"`
	NoCache        bool     `yaml:"no_cache,omitempty"`
	DemoPrefixes   []string `yaml:"demo_prefixes,omitempty"`

	NoProgress bool      `yaml:"no_progress,omitempty"`
	Color      ColorMode `yaml:"color,omitempty"`
	Debug      bool      `yaml:"debug,omitempty"`

	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	BuildTimeout   time.Duration `yaml:"build_timeout,omitempty"`
	IdleTimeout    time.Duration `yaml:"idle_timeout,omitempty"`

	OutputBufferCap int           `yaml:"output_buffer_lines,omitempty"`
	MinimizeTimeout time.Duration `yaml:"auto_minimize_timeout,omitempty"`
}

// DefaultSettingsPath returns the settings file location.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "redland-forge", "config.yaml"), nil
}

// LoadSettings reads the YAML settings file if present. A missing file is
// not an error; a malformed one is.
func LoadSettings() (Settings, error) {
	var s Settings
	path, err := DefaultSettingsPath()
	if err != nil {
		return s, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return s, nil
}

// Normalize fills zero values with defaults and validates the result.
func (s *Settings) Normalize() error {
	if s.AutoExitDelay == 0 {
		s.AutoExitDelay = DefaultAutoExitDelay
	}
	if s.ConnectTimeout == 0 {
		s.ConnectTimeout = DefaultConnectTimeout
	}
	if s.BuildTimeout == 0 {
		s.BuildTimeout = DefaultBuildTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.CacheRetention == 0 {
		s.CacheRetention = DefaultCacheRetention
	}
	if s.CacheKeep == 0 {
		s.CacheKeep = DefaultCacheKeepBuilds
	}
	if s.OutputBufferCap == 0 {
		s.OutputBufferCap = DefaultOutputBufferCap
	}
	if s.MinimizeTimeout == 0 {
		s.MinimizeTimeout = DefaultMinimizeTimeout
	}
	if len(s.DemoPrefixes) == 0 {
		s.DemoPrefixes = []string{"test-", "demo-"}
	}
	switch s.Color {
	case "":
		s.Color = ColorAuto
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always or never)", s.Color)
	}
	if s.MaxConcurrent < 0 {
		return fmt.Errorf("max-concurrent must be at least 1, got %d", s.MaxConcurrent)
	}
	return nil
}

// ResolvePath expands a leading ~/ against the user's home directory.
func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path, fmt.Errorf("could not get user home directory to resolve path '%s': %w", path, err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}
