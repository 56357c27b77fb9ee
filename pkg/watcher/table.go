//go:build linux

package watcher

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/0xmhha/treewatch/pkg/inotify"
)

// identity is the device and inode pair of a filesystem object.
type identity struct {
	dev uint64
	ino uint64
}

// statIdentity returns the identity of path, following symbolic links so
// that an alias resolves to the directory it names.
func statIdentity(path string) (identity, error) {
	var st unix.Stat_t
	for {
		err := unix.Stat(path, &st)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return identity{}, err
		}
		break
	}

	return identity{dev: uint64(st.Dev), ino: uint64(st.Ino)}, nil //nolint:unconvert // Dev is uint32 on some architectures
}

// watchTable keeps the watch-descriptor, path and identity mappings
// mutually consistent. Entries are only ever changed through insert and
// removeByID.
type watchTable struct {
	paths      map[inotify.WatchID]string
	ids        map[string]inotify.WatchID
	identities map[string]identity
	guarded    map[identity]struct{}
}

func newWatchTable() *watchTable {
	return &watchTable{
		paths:      make(map[inotify.WatchID]string),
		ids:        make(map[string]inotify.WatchID),
		identities: make(map[string]identity),
		guarded:    make(map[identity]struct{}),
	}
}

// insert records a watch. Any entry previously held by id or by path is
// dropped first so both directions stay one-to-one.
func (t *watchTable) insert(id inotify.WatchID, path string, ident identity) {
	if _, ok := t.paths[id]; ok {
		t.removeByID(id)
	}
	if old, ok := t.ids[path]; ok {
		t.removeByID(old)
	}

	t.paths[id] = path
	t.ids[path] = id
	t.identities[path] = ident
	t.guarded[ident] = struct{}{}
}

// removeByID drops the watch and returns its path. It reports false when id
// is not tracked.
func (t *watchTable) removeByID(id inotify.WatchID) (string, bool) {
	path, ok := t.paths[id]
	if !ok {
		return "", false
	}

	ident, ok := t.identities[path]
	if !ok {
		panic(fmt.Sprintf("watcher: watch %d on %s has no recorded identity", id, path))
	}

	delete(t.paths, id)
	delete(t.ids, path)
	delete(t.identities, path)
	delete(t.guarded, ident)

	return path, true
}

// pathOf returns the path watched by id.
func (t *watchTable) pathOf(id inotify.WatchID) (string, bool) {
	path, ok := t.paths[id]
	return path, ok
}

// isGuarded reports whether an object with ident is already watched.
func (t *watchTable) isGuarded(ident identity) bool {
	_, ok := t.guarded[ident]
	return ok
}

func (t *watchTable) len() int {
	return len(t.paths)
}

// sortedPaths returns every watched path in lexical order.
func (t *watchTable) sortedPaths() []string {
	paths := make([]string, 0, len(t.ids))
	for p := range t.ids {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// consistent reports whether all four maps describe the same set of watches.
func (t *watchTable) consistent() bool {
	if len(t.paths) != len(t.ids) || len(t.ids) != len(t.identities) || len(t.identities) != len(t.guarded) {
		return false
	}
	for id, p := range t.paths {
		if t.ids[p] != id {
			return false
		}
		ident, ok := t.identities[p]
		if !ok {
			return false
		}
		if _, ok := t.guarded[ident]; !ok {
			return false
		}
	}
	return true
}
