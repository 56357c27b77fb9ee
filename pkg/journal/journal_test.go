//go:build linux

package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/treewatch/pkg/inotify"
	"github.com/0xmhha/treewatch/pkg/logger"
	"github.com/0xmhha/treewatch/pkg/watcher"
)

func openTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(Config{DBPath: dbPath}, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, dbPath
}

func TestBeginRunAndAppend(t *testing.T) {
	j, _ := openTestJournal(t)

	run, err := j.BeginRun([]string{"/srv/data"}, inotify.Create|inotify.Delete)
	require.NoError(t, err)
	_, err = uuid.Parse(run.ID)
	require.NoError(t, err, "run ID must be a UUID")

	require.NoError(t, j.Append(run.ID, []watcher.Event{
		{Mask: inotify.Create, Path: "/srv/data/a"},
		{Mask: inotify.Delete | inotify.IsDir, Path: "/srv/data/b"},
	}))
	require.NoError(t, j.Append(run.ID, []watcher.Event{
		{Mask: inotify.QueueOverflow},
	}))
	require.NoError(t, j.Append(run.ID, nil))

	records, err := j.Events(run.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		assert.Equal(t, uint64(i+1), rec.Seq)
		assert.False(t, rec.Time.IsZero())
	}
	assert.Equal(t, "/srv/data/a", records[0].Path)
	assert.Equal(t, inotify.Delete|inotify.IsDir, records[1].Mask)
	assert.Equal(t, "", records[2].Path)

	found, err := j.Find(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.EventCount)
	assert.Equal(t, []string{"/srv/data"}, found.Roots)
	assert.Equal(t, inotify.Create|inotify.Delete, found.Mask)
}

func TestRunsNewestFirst(t *testing.T) {
	j, _ := openTestJournal(t)

	first, err := j.BeginRun([]string{"/a"}, inotify.Create)
	require.NoError(t, err)
	second, err := j.BeginRun([]string{"/b"}, inotify.Create)
	require.NoError(t, err)

	runs, err := j.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}

func TestFindByPrefix(t *testing.T) {
	j, _ := openTestJournal(t)

	run, err := j.BeginRun([]string{"/a"}, inotify.Create)
	require.NoError(t, err)

	found, err := j.Find(run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, found.ID)

	_, err = j.Find("not-a-run")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = j.Find("")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestFindAmbiguous(t *testing.T) {
	j, _ := openTestJournal(t)

	// Keep starting runs until two share a leading hex digit.
	a, err := j.BeginRun([]string{"/a"}, inotify.Create)
	require.NoError(t, err)
	var b *Run
	for i := 0; i < 64; i++ {
		b, err = j.BeginRun([]string{"/b"}, inotify.Create)
		require.NoError(t, err)
		if b.ID[0] == a.ID[0] {
			break
		}
		require.NoError(t, j.Delete(b.ID))
		b = nil
	}
	if b == nil {
		t.Skip("no shared leading digit found")
	}

	_, err = j.Find(a.ID[:1])
	assert.ErrorIs(t, err, ErrAmbiguousRun)
}

func TestDelete(t *testing.T) {
	j, _ := openTestJournal(t)

	run, err := j.BeginRun([]string{"/a"}, inotify.Create)
	require.NoError(t, err)
	require.NoError(t, j.Append(run.ID, []watcher.Event{{Mask: inotify.Create, Path: "/a/x"}}))

	require.NoError(t, j.Delete(run.ID))

	_, err = j.Events(run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, j.Delete(run.ID), ErrRunNotFound)
	assert.ErrorIs(t, j.Append(run.ID, []watcher.Event{{Mask: inotify.Create}}), ErrRunNotFound)

	runs, err := j.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReopenKeepsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(Config{DBPath: dbPath}, logger.Noop())
	require.NoError(t, err)
	run, err := j.BeginRun([]string{"/a"}, inotify.Create)
	require.NoError(t, err)
	require.NoError(t, j.Append(run.ID, []watcher.Event{{Mask: inotify.Create, Path: "/a/x"}}))
	require.NoError(t, j.Close())

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	j, err = Open(Config{DBPath: dbPath}, logger.Noop())
	require.NoError(t, err)
	defer j.Close()

	records, err := j.Events(run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/a/x", records[0].Path)
}

func TestClosedJournal(t *testing.T) {
	j, _ := openTestJournal(t)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err := j.BeginRun([]string{"/a"}, inotify.Create)
	assert.ErrorIs(t, err, ErrJournalClosed)
	_, err = j.Runs()
	assert.ErrorIs(t, err, ErrJournalClosed)
	_, err = j.Events("x")
	assert.ErrorIs(t, err, ErrJournalClosed)
	assert.ErrorIs(t, j.Delete("x"), ErrJournalClosed)
	assert.ErrorIs(t, j.Append("x", []watcher.Event{{}}), ErrJournalClosed)
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, "j.db"), expandHome("~/j.db"))
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, "/abs/j.db", expandHome("/abs/j.db"))
}
