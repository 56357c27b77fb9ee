//go:build linux

// Package watcher presents whole-subtree inotify semantics on top of a
// single inotify.Monitor.
//
// A Watcher installs one watch per directory under each root, follows
// directory creation and deletion inside the tree by adding and dropping
// watches as events arrive, and reports every subscribed event with its fully
// qualified path.
//
// Only directory creation installs new watches. A directory moved into the
// tree is not watched, and one moved out keeps reporting under its old path
// until the kernel drops its watch.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    Roots: []string{"/srv/data"},
//	    Mask:  inotify.Create | inotify.Delete,
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	for {
//	    events, err := w.Read()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, e := range events {
//	        fmt.Printf("%s %s\n", e.Mask, e.Path)
//	    }
//	}
package watcher

import (
	"fmt"
	"time"

	"github.com/0xmhha/treewatch/pkg/inotify"
)

// Event is a tree-qualified filesystem event. It does not reference any
// monitor state and may be retained freely.
type Event struct {
	// Mask is the kernel event mask, including qualifiers such as IsDir.
	Mask inotify.Mask

	// Path is the absolute path of the object the event refers to. It is
	// empty only for QueueOverflow events.
	Path string
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("%-13s %q", e.Mask.String(), e.Path)
}

// Config contains watcher configuration.
type Config struct {
	// Roots are the directories to watch recursively. Relative paths are
	// resolved against the working directory.
	Roots []string

	// Mask is the set of event kinds reported to the caller. The watcher
	// additionally observes Create and DeleteSelf to maintain its watches;
	// those are only reported when present here.
	Mask inotify.Mask
}

// monitor is the subset of *inotify.Monitor the watcher drives.
type monitor interface {
	Add(path string, mask inotify.Mask) (inotify.WatchID, error)
	Read() ([]inotify.Event, error)
	ReadTimeout(timeout time.Duration) ([]inotify.Event, error)
	Close() error
}

// maintenanceMask is always requested because it drives watch-set updates.
const maintenanceMask = inotify.Create | inotify.DeleteSelf
