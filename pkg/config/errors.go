package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoRoots is returned when no root directories are specified.
	ErrNoRoots = errors.New("no root directories specified")

	// ErrInvalidEvents is returned when the event list is empty or names an
	// unknown event kind.
	ErrInvalidEvents = errors.New("invalid event list")

	// ErrInvalidExclude is returned when an exclude pattern is malformed.
	ErrInvalidExclude = errors.New("invalid exclude pattern")

	// ErrInvalidTimeout is returned when the read timeout is negative.
	ErrInvalidTimeout = errors.New("invalid read timeout: must be >= 0")

	// ErrInvalidOutputFormat is returned when output format is not recognized.
	ErrInvalidOutputFormat = errors.New("invalid output format: must be text or json")

	// ErrNoDBPath is returned when the journal is enabled without a database path.
	ErrNoDBPath = errors.New("journal enabled but no database path set")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
