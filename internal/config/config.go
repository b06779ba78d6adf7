// Package config loads and validates FileSentry configuration.
//
// Configuration is applied in order of increasing precedence: hardcoded
// defaults, the user config (~/.config/filesentry/config.yaml), the
// project config (.filesentry.yaml in the project root), and finally
// FILESENTRY_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete FileSentry configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Journal JournalConfig `yaml:"journal" json:"journal"`
}

// WatchConfig configures which files to watch and how changes are
// coalesced.
type WatchConfig struct {
	// Files lists the paths to watch. Relative paths are resolved
	// against the project root at load time.
	Files []string `yaml:"files" json:"files"`

	// Debounce is the per-file suppression window as a duration
	// string (e.g. "150ms"). Changes to the same file inside the
	// window are coalesced into the first notification.
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`

	// File is the log file path. Empty uses ~/.filesentry/logs.
	File string `yaml:"file" json:"file"`
}

// JournalConfig configures the on-disk change journal.
type JournalConfig struct {
	// Enabled turns on journaling of delivered notifications.
	// Default: false, opt-in.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path is the journal database path. Empty uses
	// ~/.filesentry/journal.db.
	Path string `yaml:"path" json:"path"`

	// Retention bounds how long journaled events are kept, as a
	// duration string. Empty keeps everything.
	Retention string `yaml:"retention" json:"retention"`
}

// DefaultDebounce is the window applied when the config does not set one.
const DefaultDebounce = "150ms"

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Watch: WatchConfig{
			Files:    []string{},
			Debounce: DefaultDebounce,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Journal: JournalConfig{
			Enabled:   false,
			Path:      "",
			Retention: "",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/filesentry/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/filesentry/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "filesentry", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback - should rarely happen
		return filepath.Join(os.TempDir(), ".config", "filesentry", "config.yaml")
	}
	return filepath.Join(home, ".config", "filesentry", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the project rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/filesentry/config.yaml)
//  3. Project config (.filesentry.yaml in project root)
//  4. Environment variables (FILESENTRY_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.resolveFiles(dir)
	return cfg, nil
}

// loadFromFile attempts to load configuration from .filesentry.yaml or
// .filesentry.yml.
func (c *Config) loadFromFile(dir string) error {
	// Try .yaml first (takes precedence)
	yamlPath := filepath.Join(dir, ".filesentry.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".filesentry.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Use a temporary struct for parsing to detect type errors
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Watch.Files) > 0 {
		c.Watch.Files = other.Watch.Files
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}

	// Enabled is boolean - treat any journal setting as intent
	if other.Journal.Enabled || other.Journal.Path != "" || other.Journal.Retention != "" {
		c.Journal.Enabled = other.Journal.Enabled
	}
	if other.Journal.Path != "" {
		c.Journal.Path = other.Journal.Path
	}
	if other.Journal.Retention != "" {
		c.Journal.Retention = other.Journal.Retention
	}
}

// applyEnvOverrides applies FILESENTRY_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FILESENTRY_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("FILESENTRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FILESENTRY_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("FILESENTRY_JOURNAL"); v != "" {
		c.Journal.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("FILESENTRY_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
}

// resolveFiles makes relative watch paths absolute against the project
// root.
func (c *Config) resolveFiles(dir string) {
	for i, f := range c.Watch.Files {
		if f == "" || filepath.IsAbs(f) {
			continue
		}
		c.Watch.Files[i] = filepath.Join(dir, f)
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("watch.debounce must be a duration like \"150ms\", got %s", c.Watch.Debounce)
	}
	if d < 0 {
		return fmt.Errorf("watch.debounce must be non-negative, got %s", c.Watch.Debounce)
	}

	for _, f := range c.Watch.Files {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("watch.files must not contain blank entries")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	if c.Journal.Retention != "" {
		r, err := time.ParseDuration(c.Journal.Retention)
		if err != nil {
			return fmt.Errorf("journal.retention must be a duration like \"72h\", got %s", c.Journal.Retention)
		}
		if r < 0 {
			return fmt.Errorf("journal.retention must be non-negative, got %s", c.Journal.Retention)
		}
	}

	return nil
}

// DebounceDuration returns the parsed debounce window.
// Call Validate first; invalid values fall back to the default.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d < 0 {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}

// RetentionDuration returns the parsed journal retention, zero when
// retention is unset.
func (c *Config) RetentionDuration() time.Duration {
	if c.Journal.Retention == "" {
		return 0
	}
	r, err := time.ParseDuration(c.Journal.Retention)
	if err != nil || r < 0 {
		return 0
	}
	return r
}

// JournalPath returns the configured journal path, or the default under
// the user's home directory.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".filesentry", "journal.db")
	}
	return filepath.Join(home, ".filesentry", "journal.db")
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or .filesentry.yaml/.yml file by
// walking up the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".filesentry.yaml")) ||
			fileExists(filepath.Join(currentDir, ".filesentry.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
