//go:build linux

package watcher

import "errors"

// Common errors returned by the watcher.
var (
	// ErrWatcherClosed is returned when attempting to use a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrNoRoots is returned when no root could be watched.
	ErrNoRoots = errors.New("no watchable root paths")
)
