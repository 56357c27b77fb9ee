//go:build linux

package journal

import "errors"

// Common errors returned by the journal.
var (
	// ErrRunNotFound is returned when no run matches an ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRun is returned when an ID prefix matches more than one run.
	ErrAmbiguousRun = errors.New("run ID prefix is ambiguous")

	// ErrJournalClosed is returned when attempting to use a closed journal.
	ErrJournalClosed = errors.New("journal is closed")
)
