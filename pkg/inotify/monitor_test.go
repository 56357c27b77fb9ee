//go:build linux

package inotify

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()

	m, err := New()
	require.NoError(t, err, "create monitor")
	t.Cleanup(func() {
		if closeErr := m.Close(); closeErr != nil {
			t.Logf("Close() error = %v", closeErr)
		}
	})

	return m
}

// readOne waits for a single batch and fails the test on timeout.
func readOne(t *testing.T, m *Monitor) []Event {
	t.Helper()

	events, err := m.ReadTimeout(2 * time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, events, "timeout waiting for events")

	return events
}

func TestFlatMonitorScenario(t *testing.T) {
	dir := t.TempDir()
	m := newTestMonitor(t)

	wd, err := m.Add(dir, Create|Delete)
	require.NoError(t, err)

	victim := filepath.Join(dir, "killme")
	require.NoError(t, os.WriteFile(victim, []byte("x"), 0600))

	events := readOne(t, m)
	require.Len(t, events, 1)
	assert.Equal(t, wd, events[0].WatchID)
	assert.Equal(t, Create, events[0].Mask)
	assert.Equal(t, "killme", events[0].Name)

	require.NoError(t, os.Remove(victim))

	events = readOne(t, m)
	require.Len(t, events, 1)
	assert.Equal(t, Delete, events[0].Mask)
	assert.Equal(t, "killme", events[0].Name)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested"), []byte("x"), 0600))

	events = readOne(t, m)
	require.Len(t, events, 1)
	assert.Equal(t, Create|IsDir, events[0].Mask)
	assert.Equal(t, "sub", events[0].Name)

	// The nested file lives below the watched level and must stay invisible.
	events, err = m.ReadTimeout(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReadTimeoutElapses(t *testing.T) {
	dir := t.TempDir()
	m := newTestMonitor(t)

	_, err := m.Add(dir, Create)
	require.NoError(t, err)

	start := time.Now()
	events, err := m.ReadTimeout(50 * time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Empty(t, events)
	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestReadZeroTimeoutDoesNotBlock(t *testing.T) {
	m := newTestMonitor(t)

	start := time.Now()
	events, err := m.ReadTimeout(0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSelfEventsHaveEmptyName(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.Mkdir(target, 0700))

	m := newTestMonitor(t)
	wd, err := m.Add(target, DeleteSelf)
	require.NoError(t, err)

	require.NoError(t, os.Remove(target))

	events := readOne(t, m)
	require.NotEmpty(t, events)
	assert.Equal(t, wd, events[0].WatchID)
	assert.True(t, events[0].Mask.Has(DeleteSelf))
	assert.Empty(t, events[0].Name)
}

func TestReaddMergesIntoSameWatch(t *testing.T) {
	dir := t.TempDir()
	m := newTestMonitor(t)

	first, err := m.Add(dir, Create)
	require.NoError(t, err)

	second, err := m.Add(dir, Delete)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAddNonexistentPath(t *testing.T) {
	m := newTestMonitor(t)

	_, err := m.Add(filepath.Join(t.TempDir(), "missing"), Create)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWatch)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestRemoveStaleWatch(t *testing.T) {
	dir := t.TempDir()
	m := newTestMonitor(t)

	wd, err := m.Add(dir, Create)
	require.NoError(t, err)

	require.NoError(t, m.Remove(wd))

	err = m.Remove(wd)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWatch)
}

func TestClosedMonitor(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "second close")

	_, err = m.Add(t.TempDir(), Create)
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, m.Remove(1), ErrClosed)

	_, err = m.ReadTimeout(time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}

// encodeRecord builds one kernel-format record with the name padded to a
// multiple of the header size, as the kernel does.
func encodeRecord(wd int32, mask Mask, cookie uint32, name string) []byte {
	nameLen := 0
	if name != "" {
		nameLen = (len(name) + unix.SizeofInotifyEvent) / unix.SizeofInotifyEvent * unix.SizeofInotifyEvent
	}

	rec := make([]byte, unix.SizeofInotifyEvent+nameLen)
	binary.NativeEndian.PutUint32(rec[0:], uint32(wd))
	binary.NativeEndian.PutUint32(rec[4:], uint32(mask))
	binary.NativeEndian.PutUint32(rec[8:], cookie)
	binary.NativeEndian.PutUint32(rec[12:], uint32(nameLen))
	copy(rec[unix.SizeofInotifyEvent:], name)

	return rec
}

func TestDecode(t *testing.T) {
	var buf []byte
	buf = append(buf, encodeRecord(1, Create, 0, "a")...)
	buf = append(buf, encodeRecord(2, DeleteSelf, 0, "")...)
	buf = append(buf, encodeRecord(1, MovedFrom, 77, "exactly-sixteen!")...)
	buf = append(buf, encodeRecord(1, MovedTo|IsDir, 77, "b")...)

	events, err := decode(buf)
	require.NoError(t, err)

	want := []Event{
		{WatchID: 1, Mask: Create, Name: "a"},
		{WatchID: 2, Mask: DeleteSelf},
		{WatchID: 1, Mask: MovedFrom, Cookie: 77, Name: "exactly-sixteen!"},
		{WatchID: 1, Mask: MovedTo | IsDir, Cookie: 77, Name: "b"},
	}
	assert.Equal(t, want, events)
}

func TestDecodeCopiesNames(t *testing.T) {
	buf := encodeRecord(3, Modify, 0, "file")

	events, err := decode(buf)
	require.NoError(t, err)

	for i := range buf {
		buf[i] = 0
	}
	assert.Equal(t, "file", events[0].Name)
}

func TestDecodeTruncated(t *testing.T) {
	full := encodeRecord(1, Create, 0, "name")

	tests := []struct {
		name string
		buf  []byte
	}{
		{"short header", full[:unix.SizeofInotifyEvent-1]},
		{"short name", full[:len(full)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(tt.buf)
			assert.ErrorIs(t, err, ErrRead)
		})
	}
}

func TestPollTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{-time.Second, 0},
		{0, 0},
		{time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{time.Second, 1000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pollTimeout(tt.in), "pollTimeout(%v)", tt.in)
	}
}
