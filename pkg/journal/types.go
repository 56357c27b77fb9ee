//go:build linux

// Package journal records delivered tree events in a BoltDB database so that
// a watch run can be inspected after it ends.
//
// Every call to BeginRun starts a run identified by a UUID. Events appended
// to a run are stored in arrival order under per-run sequence numbers. The
// journal records events only; it never persists watch state.
//
// Example usage:
//
//	j, err := journal.Open(journal.Config{DBPath: "~/.config/treewatch/journal.db"}, log)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer j.Close()
//
//	run, _ := j.BeginRun([]string{"/srv/data"}, inotify.Create|inotify.Delete)
//	_ = j.Append(run.ID, events)
package journal

import (
	"time"

	"github.com/0xmhha/treewatch/pkg/inotify"
)

// Run describes one watch run.
type Run struct {
	// ID is the run's UUID
	ID string `json:"id"`

	// Roots are the watched directories
	Roots []string `json:"roots"`

	// Mask is the subscribed event mask
	Mask inotify.Mask `json:"mask"`

	// StartedAt is when the run began
	StartedAt time.Time `json:"started_at"`

	// UpdatedAt is when events were last appended
	UpdatedAt time.Time `json:"updated_at"`

	// EventCount is the number of recorded events
	EventCount int `json:"event_count"`
}

// Record is one journaled event.
type Record struct {
	// Seq orders records within a run, starting at 1
	Seq uint64 `json:"seq"`

	// Time is when the event was appended
	Time time.Time `json:"time"`

	// Mask is the kernel event mask
	Mask inotify.Mask `json:"mask"`

	// Path is the event's absolute path, empty for overflow
	Path string `json:"path"`
}

// Config contains journal configuration.
type Config struct {
	// DBPath is the database file. A leading "~/" expands to the home
	// directory.
	DBPath string

	// Timeout bounds how long Open waits for the database file lock
	// (default: 1s).
	Timeout time.Duration
}
