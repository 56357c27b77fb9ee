//go:build linux

package inotify

import "errors"

// Common errors returned by the monitor.
var (
	// ErrInit is returned when the inotify instance cannot be created,
	// typically because the per-user instance limit is exhausted.
	ErrInit = errors.New("inotify init failed")

	// ErrWatch is returned when a watch cannot be added or removed.
	ErrWatch = errors.New("inotify watch failed")

	// ErrRead is returned when reading or decoding events fails for a reason
	// other than a timeout. The monitor should be considered unusable.
	ErrRead = errors.New("inotify read failed")

	// ErrClosed is returned when using a closed monitor.
	ErrClosed = errors.New("monitor is closed")

	// ErrUnknownEvent is returned by ParseMask for an unrecognized name.
	ErrUnknownEvent = errors.New("unknown event name")
)
