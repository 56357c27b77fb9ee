// Package config provides configuration management for treewatch.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mask, _ := cfg.Mask()
//	fmt.Printf("watching %v for %s\n", cfg.Roots, mask)
package config

import (
	"fmt"
	"time"

	"github.com/0xmhha/treewatch/pkg/filter"
	"github.com/0xmhha/treewatch/pkg/inotify"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Roots must have at least one directory
// - Events must name at least one known event kind
// - Exclude patterns must be valid glob patterns
// - Read.Timeout must be >= 0
// - Journal.DBPath must be set when the journal is enabled.
type Config struct {
	// Directories to watch recursively
	Roots []string `yaml:"roots"`

	// Event kinds to report, e.g. create, delete, move
	Events []string `yaml:"events"`

	// Glob patterns for paths whose events are hidden
	Exclude []string `yaml:"exclude"`

	// Read loop settings
	Read ReadConfig `yaml:"read"`

	// Output settings
	Output OutputConfig `yaml:"output"`

	// Event journal settings
	Journal JournalConfig `yaml:"journal"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// ReadConfig contains read loop settings.
type ReadConfig struct {
	// Upper bound for a single read; zero blocks until events arrive
	Timeout time.Duration `yaml:"timeout"`
}

// OutputConfig contains event output settings.
type OutputConfig struct {
	// Output format (text, json)
	Format string `yaml:"format"`

	// Enable colored output on terminals
	Color bool `yaml:"color"`
}

// JournalConfig contains event journal settings.
type JournalConfig struct {
	// Record delivered events
	Enabled bool `yaml:"enabled"`

	// Path to BoltDB database file
	DBPath string `yaml:"db_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Mask returns the event mask named by Events.
func (c *Config) Mask() (inotify.Mask, error) {
	mask, err := inotify.ParseMask(c.Events)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidEvents, err)
	}
	if mask == 0 {
		return 0, fmt.Errorf("%w: no event kinds selected", ErrInvalidEvents)
	}
	return mask, nil
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return ErrNoRoots
	}

	if _, err := c.Mask(); err != nil {
		return err
	}

	if _, err := filter.New(c.Exclude); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExclude, err)
	}

	if c.Read.Timeout < 0 {
		return ErrInvalidTimeout
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Output.Format] {
		return ErrInvalidOutputFormat
	}

	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return ErrNoDBPath
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Roots:  []string{"."},
		Events: []string{"create", "delete", "modify", "move"},
		Read: ReadConfig{
			Timeout: 0,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Journal: JournalConfig{
			Enabled: false,
			DBPath:  defaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
