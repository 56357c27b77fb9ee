//go:build linux

package watcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchTableInsertRemove(t *testing.T) {
	table := newWatchTable()

	table.insert(1, "/a", identity{dev: 1, ino: 10})
	table.insert(2, "/a/b", identity{dev: 1, ino: 11})
	require.Equal(t, 2, table.len())
	require.True(t, table.consistent())

	path, ok := table.pathOf(2)
	require.True(t, ok)
	assert.Equal(t, "/a/b", path)
	assert.True(t, table.isGuarded(identity{dev: 1, ino: 11}))

	path, ok = table.removeByID(2)
	require.True(t, ok)
	assert.Equal(t, "/a/b", path)
	assert.False(t, table.isGuarded(identity{dev: 1, ino: 11}))
	assert.True(t, table.consistent())

	_, ok = table.removeByID(2)
	assert.False(t, ok)
}

func TestWatchTableInsertReplaces(t *testing.T) {
	table := newWatchTable()
	table.insert(1, "/a", identity{dev: 1, ino: 10})

	// Same descriptor reused for a different path.
	table.insert(1, "/b", identity{dev: 1, ino: 20})
	assert.Equal(t, []string{"/b"}, table.sortedPaths())
	assert.False(t, table.isGuarded(identity{dev: 1, ino: 10}))
	assert.True(t, table.consistent())

	// Same path watched under a new descriptor.
	table.insert(3, "/b", identity{dev: 1, ino: 30})
	_, ok := table.pathOf(1)
	assert.False(t, ok)
	assert.Equal(t, 1, table.len())
	assert.True(t, table.consistent())
}

func TestWatchTableSortedPaths(t *testing.T) {
	table := newWatchTable()
	table.insert(3, "/c", identity{ino: 3})
	table.insert(1, "/a", identity{ino: 1})
	table.insert(2, "/b", identity{ino: 2})

	assert.Equal(t, []string{"/a", "/b", "/c"}, table.sortedPaths())
}

func TestStatIdentity(t *testing.T) {
	dir := t.TempDir()

	first, err := statIdentity(dir)
	require.NoError(t, err)

	// A trailing dot names the same directory.
	second, err := statIdentity(dir + "/.")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = statIdentity(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
