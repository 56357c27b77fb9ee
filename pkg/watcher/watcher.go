//go:build linux

package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/0xmhha/treewatch/pkg/inotify"
	"github.com/0xmhha/treewatch/pkg/logger"
)

// Watcher watches one or more directory trees through a single inotify
// monitor.
//
// A Watcher has no goroutines and no locks. It must be owned by one
// goroutine; concurrent use requires external synchronization.
type Watcher struct {
	mon    monitor
	logger logger.Logger

	subscription inotify.Mask
	watchMask    inotify.Mask

	table  *watchTable
	closed bool
}

// New creates a watcher over cfg.Roots.
//
// Parameters:
//   - cfg: Watcher configuration
//   - log: Logger instance
//
// Returns:
//   - Watcher with one watch per reachable directory
//   - Error if the monitor cannot be created, a watch fails for a reason
//     other than the directory vanishing or being unreadable, or no root
//     could be watched
//
// On error every watch installed so far is released.
func New(cfg Config, log logger.Logger) (*Watcher, error) {
	mon, err := inotify.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}

	w, err := newWatcher(mon, cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("tree watcher started",
		"roots", cfg.Roots,
		"mask", w.subscription.String(),
		"watches", w.table.len())

	return w, nil
}

// newWatcher builds a watcher around mon and enumerates the roots. mon is
// closed if enumeration fails.
func newWatcher(mon monitor, cfg Config, log logger.Logger) (*Watcher, error) {
	subscription := cfg.Mask &^ inotify.IsDir

	w := &Watcher{
		mon:          mon,
		logger:       log,
		subscription: subscription,
		watchMask:    subscription | maintenanceMask,
		table:        newWatchTable(),
	}

	for _, root := range cfg.Roots {
		abs, absErr := filepath.Abs(root)
		if absErr != nil {
			log.Warn("cannot resolve root, skipping", "root", root, "error", absErr)
			continue
		}

		if walkErr := w.walk(abs); walkErr != nil {
			w.abort()
			return nil, walkErr
		}
	}

	if w.table.len() == 0 {
		w.abort()
		return nil, ErrNoRoots
	}

	return w, nil
}

// abort releases the monitor after a failed construction.
func (w *Watcher) abort() {
	if err := w.mon.Close(); err != nil {
		w.logger.Error("failed to close monitor after setup error", "error", err)
	}
	w.table = newWatchTable()
	w.closed = true
}

// walk adds a watch for dir and every directory reachable below it,
// following directory symlinks. The inode guard stops recursion at any
// directory that is already watched, so aliasing loops terminate.
func (w *Watcher) walk(dir string) error {
	added, err := w.addWatch(dir)
	if err != nil {
		if skippable(err) {
			w.logger.Debug("skipping unwatchable directory", "path", dir, "error", err)
			return nil
		}
		return err
	}
	if !added {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Debug("cannot enumerate directory, skipping", "path", dir, "error", err)
		return nil
	}

	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(child)
			if statErr != nil || !info.IsDir() {
				continue
			}
		} else if !entry.IsDir() {
			continue
		}

		if err := w.walk(child); err != nil {
			return err
		}
	}

	return nil
}

// skippable reports whether a watch failure means the directory vanished or
// cannot be read, rather than that the monitor itself is failing.
func skippable(err error) bool {
	return errors.Is(err, unix.ENOENT) ||
		errors.Is(err, unix.ENOTDIR) ||
		errors.Is(err, unix.EACCES)
}

// addWatch installs a watch on path unless an object with the same identity
// is already watched. A path that no longer exists is reported as not added.
func (w *Watcher) addWatch(path string) (bool, error) {
	ident, err := statIdentity(path)
	if err != nil {
		w.logger.Debug("cannot stat directory, skipping", "path", path, "error", err)
		return false, nil
	}

	if w.table.isGuarded(ident) {
		w.logger.Debug("directory already watched through another path", "path", path)
		return false, nil
	}

	id, err := w.mon.Add(path, w.watchMask)
	if err != nil {
		return false, err
	}

	w.table.insert(id, path, ident)
	w.logger.Debug("added watch", "path", path, "wd", id)

	return true, nil
}

// removeWatch forgets a watch the kernel has already dropped.
func (w *Watcher) removeWatch(id inotify.WatchID) {
	path, ok := w.table.removeByID(id)
	if !ok {
		panic(fmt.Sprintf("watcher: removing untracked watch %d", id))
	}

	w.logger.Debug("removed watch", "path", path, "wd", id)
}

// Read blocks until at least one subscribed event is available.
func (w *Watcher) Read() ([]Event, error) {
	return w.read(0, false)
}

// ReadTimeout is like Read but returns an empty slice once timeout has
// elapsed without a subscribed event. Batches that carry only watch
// maintenance events consume the budget instead of restarting it.
func (w *Watcher) ReadTimeout(timeout time.Duration) ([]Event, error) {
	return w.read(timeout, true)
}

func (w *Watcher) read(timeout time.Duration, bounded bool) ([]Event, error) {
	if w.closed {
		return nil, ErrWatcherClosed
	}

	var deadline time.Time
	if bounded {
		deadline = time.Now().Add(timeout)
	}

	for {
		var (
			raw []inotify.Event
			err error
		)
		if bounded {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			raw, err = w.mon.ReadTimeout(remaining)
		} else {
			raw, err = w.mon.Read()
		}
		if err != nil {
			return nil, err
		}

		if len(raw) == 0 {
			return nil, nil
		}

		if events := w.translate(raw); len(events) > 0 {
			return events, nil
		}
	}
}

// translate resolves a raw batch against the watch table. Each event first
// updates the watch set and is then filtered for delivery.
func (w *Watcher) translate(raw []inotify.Event) []Event {
	var events []Event

	for _, ev := range raw {
		path, ok := w.resolve(ev)
		if !ok {
			continue
		}

		w.applyStructural(ev, path)

		if w.deliverable(ev.Mask) {
			events = append(events, Event{Mask: ev.Mask, Path: path})
		}
	}

	return events
}

// resolve returns the path an event refers to. It reports false for kernel
// bookkeeping about watches that are no longer tracked.
func (w *Watcher) resolve(ev inotify.Event) (string, bool) {
	if ev.Mask.Has(inotify.QueueOverflow) {
		w.logger.Warn("inotify queue overflowed, events were lost")
		return "", true
	}

	base, ok := w.table.pathOf(ev.WatchID)
	if !ok {
		if ev.Mask.Has(inotify.Ignored) {
			return "", false
		}
		panic(fmt.Sprintf("watcher: event %s for untracked watch", ev))
	}

	if ev.Name == "" {
		return base, true
	}

	return filepath.Join(base, ev.Name), true
}

// applyStructural keeps the watch set in step with the tree: new
// subdirectories gain a watch and deleted ones lose theirs.
func (w *Watcher) applyStructural(ev inotify.Event, path string) {
	switch {
	case ev.Mask.Has(inotify.Create | inotify.IsDir):
		// The directory may already be gone again.
		if _, err := w.addWatch(path); err != nil {
			w.logger.Debug("failed to watch new directory", "path", path, "error", err)
		}

	case ev.Mask.Has(inotify.DeleteSelf | inotify.IsDir):
		w.removeWatch(ev.WatchID)

	case ev.Mask.Has(inotify.Ignored):
		// The kernel dropped a watch we did not see deleted, e.g. on unmount
		// or when a watched root is a plain file.
		w.removeWatch(ev.WatchID)
	}
}

// deliverable reports whether an event with mask reaches the caller.
func (w *Watcher) deliverable(mask inotify.Mask) bool {
	return mask.Has(inotify.QueueOverflow) || mask.Any(w.subscription)
}

// WatchCount returns the number of active watches.
func (w *Watcher) WatchCount() int {
	return w.table.len()
}

// Paths returns the watched directories in lexical order.
func (w *Watcher) Paths() []string {
	return w.table.sortedPaths()
}

// Mask returns the mask requested from the kernel for every watch.
func (w *Watcher) Mask() inotify.Mask {
	return w.watchMask
}

// Close releases the monitor and every watch. Closing twice is a no-op.
func (w *Watcher) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true
	count := w.table.len()
	w.table = newWatchTable()

	if err := w.mon.Close(); err != nil {
		w.logger.Error("failed to close monitor", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Info("tree watcher closed", "watches", count)
	return nil
}
