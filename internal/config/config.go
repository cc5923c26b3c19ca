// Package config handles pubmerge configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matsen/pubmerge/internal/dedupe"
)

// Config represents configuration stored in ~/.config/pubmerge/config.yml.
type Config struct {
	Mode            string                 `yaml:"mode"`
	Thresholds      Thresholds             `yaml:"thresholds"`
	CanonicalSource string                 `yaml:"canonical_source"`
	Priority        []dedupe.PriorityEntry `yaml:"priority"`
	GroupBy         string                 `yaml:"group_by"`
	PageSize        int                    `yaml:"page_size"`
	LogLevel        string                 `yaml:"log_level,omitempty"`
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "pubmerge"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode:            string(dedupe.ModeApproximate),
		Thresholds:      DefaultThresholds(),
		CanonicalSource: "primary",
		Priority: []dedupe.PriorityEntry{
			{Source: "primary"},
			{Source: "secondary"},
		},
		GroupBy:  "author",
		PageSize: 6,
	}
}

// DefaultPath returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/pubmerge/config.yml.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load reads configuration from path. Keys absent from the file keep their
// default values, and a missing file yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks every field. The first problem is returned as a *ConfigError.
func (c *Config) Validate() error {
	if _, err := dedupe.ParseMode(c.Mode); err != nil {
		return &ConfigError{Field: "mode", Value: c.Mode, Msg: err.Error()}
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	for i, e := range c.Priority {
		if e.Source == "" {
			return &ConfigError{Field: fmt.Sprintf("priority[%d].source", i), Value: e.Source, Msg: "must not be empty"}
		}
	}
	if c.PageSize < 1 {
		return &ConfigError{Field: "page_size", Value: c.PageSize, Msg: "must be at least 1"}
	}
	if c.LogLevel != "" {
		if _, ok := logLevels[c.LogLevel]; !ok {
			return &ConfigError{Field: "log_level", Value: c.LogLevel, Msg: "unknown level"}
		}
	}
	return nil
}

var logLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {}, "disabled": {},
}

// Options converts the configuration into deduplication options.
// The caller attaches a logger.
func (c *Config) Options() dedupe.Options {
	return dedupe.Options{
		Mode:            dedupe.Mode(c.Mode),
		MatchThreshold:  c.Thresholds.Match,
		ReviewThreshold: c.Thresholds.Review,
		Priority:        dedupe.PriorityTable(c.Priority),
		CanonicalSource: c.CanonicalSource,
	}
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
