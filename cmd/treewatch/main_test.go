//go:build linux

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/treewatch/pkg/config"
	"github.com/0xmhha/treewatch/pkg/journal"
)

// isolate points configuration discovery at an empty home directory.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"TREEWATCH_ROOTS", "TREEWATCH_EVENTS", "TREEWATCH_DB", "TREEWATCH_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	return home
}

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// keepCreating creates files in dir until stop is closed. It alternates
// between names ending in ".txt" and ".skip".
func keepCreating(t *testing.T, dir string, stop <-chan struct{}) <-chan struct{} {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-time.After(50 * time.Millisecond):
			}
			ext := ".txt"
			if i%2 == 1 {
				ext = ".skip"
			}
			_ = os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%d%s", i, ext)), nil, 0600)
		}
	}()

	return done
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "treewatch dev\n", out)
}

func TestUnknownCommand(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "bogus")
	assert.Error(t, err)
}

func TestWatchCountJournalAndExclude(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	db := filepath.Join(t.TempDir(), "journal.db")

	stop := make(chan struct{})
	generated := keepCreating(t, dir, stop)

	out, stderr, err := execute(t, "watch", dir,
		"--events", "create",
		"--exclude", "*.skip",
		"--count", "2",
		"--timeout", "10s",
		"--format", "json",
		"--journal", "--db", db,
		"--no-summary",
		"--log-level", "error")
	close(stop)
	<-generated
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "output:\n%s", out)
	for _, line := range lines {
		var ev struct {
			Mask string `json:"mask"`
			Path string `json:"path"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, "CREATE", ev.Mask)
		assert.True(t, strings.HasSuffix(ev.Path, ".txt"), "excluded path shown: %s", ev.Path)
	}
	assert.Contains(t, stderr, "Journal run:")

	out, _, err = execute(t, "journal", "list", "--db", db, "--format", "json")
	require.NoError(t, err)

	var runs []struct {
		ID         string `json:"id"`
		EventCount int    `json:"event_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].EventCount)

	out, _, err = execute(t, "journal", "show", runs[0].ID[:8], "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, runs[0].ID)
	assert.Contains(t, out, ".txt")

	out, _, err = execute(t, "journal", "delete", runs[0].ID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted run")

	_, _, err = execute(t, "journal", "show", runs[0].ID, "--db", db)
	assert.ErrorIs(t, err, journal.ErrRunNotFound)
}

func TestWatchIdleTimeoutPrintsSummary(t *testing.T) {
	isolate(t)

	start := time.Now()
	out, stderr, err := execute(t, "watch", t.TempDir(), "--timeout", "100ms", "--log-level", "error")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "Event Summary")
}

func TestWatchRejectsInvalidFlags(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	_, _, err := execute(t, "watch", dir, "--events", "teleport")
	assert.ErrorIs(t, err, config.ErrInvalidEvents)

	_, _, err = execute(t, "watch", dir, "--color", "purple")
	assert.Error(t, err)

	_, _, err = execute(t, "watch", dir, "--count", "-1")
	assert.Error(t, err)

	_, _, err = execute(t, "watch", dir, "--journal", "--db", "")
	assert.ErrorIs(t, err, config.ErrNoDBPath)
}

func TestWatchMissingRoot(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "watch", filepath.Join(t.TempDir(), "missing"), "--log-level", "error")
	assert.Error(t, err)
}

func TestMonitorCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	stop := make(chan struct{})
	generated := keepCreating(t, dir, stop)

	out, _, err := execute(t, "monitor", dir, "--events", "create", "--count", "1", "--log-level", "error")
	close(stop)
	<-generated
	require.NoError(t, err)

	assert.Contains(t, out, "CREATE")
	assert.Equal(t, 1, strings.Count(out, "\n"), "output:\n%s", out)
}

func TestConfigShow(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "treewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roots: [/srv/data]\n"), 0600))

	out, _, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+path)
	assert.Contains(t, out, "/srv/data")

	out, _, err = execute(t, "--config", path, "config", "show", "--format", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, []string{"/srv/data"}, cfg.Roots)

	_, _, err = execute(t, "--config", path, "config", "show", "--format", "xml")
	assert.Error(t, err)
}

func TestConfigInitAndPath(t *testing.T) {
	home := isolate(t)

	out, _, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "defaults (no config file found)")

	out, _, err = execute(t, "config", "init")
	require.NoError(t, err)
	want := filepath.Join(home, ".config", "treewatch", "config.yaml")
	assert.Contains(t, out, want)

	_, _, err = execute(t, "config", "init")
	assert.Error(t, err, "init must not overwrite without --force")

	_, _, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	out, _, err = execute(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "Active configuration: "+want)
}

func TestUseColor(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer

	on, err := useColor("always", cfg, &buf)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = useColor("auto", cfg, &buf)
	require.NoError(t, err)
	assert.False(t, on, "a buffer is not a terminal")

	on, err = useColor("never", cfg, &buf)
	require.NoError(t, err)
	assert.False(t, on)

	_, err = useColor("sometimes", cfg, &buf)
	assert.Error(t, err)
}
