//go:build linux

package inotify

import (
	"bytes"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// RecordsPerRead is the number of maximal-size records the decode buffer can
// hold, so that one read drains several simultaneously queued events.
const RecordsPerRead = 16

// maxRecordSize is the size of a record carrying the longest possible name,
// including its terminator.
const maxRecordSize = unix.SizeofInotifyEvent + unix.NAME_MAX + 1

// Monitor owns one inotify descriptor.
//
// A Monitor is not safe for concurrent use. All methods are expected to be
// called from the goroutine that owns it.
type Monitor struct {
	fd  int
	buf []byte
}

// New creates a monitor backed by a fresh non-blocking inotify descriptor.
//
// Returns an error wrapping ErrInit if the kernel refuses the instance.
func New() (*Monitor, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}

	return &Monitor{
		fd:  fd,
		buf: make([]byte, RecordsPerRead*maxRecordSize),
	}, nil
}

// Add registers interest in mask for path and returns the watch descriptor.
//
// Adding a path that is already watched merges mask into the existing watch
// and returns the existing descriptor.
func (m *Monitor) Add(path string, mask Mask) (WatchID, error) {
	if m.fd < 0 {
		return 0, ErrClosed
	}

	wd, err := unix.InotifyAddWatch(m.fd, path, uint32(mask))
	if err != nil {
		return 0, fmt.Errorf("%w: add %s: %w", ErrWatch, path, err)
	}

	return WatchID(wd), nil
}

// Remove deregisters a watch. It fails if id is unknown, including when the
// kernel already dropped the watch because its object was deleted.
func (m *Monitor) Remove(id WatchID) error {
	if m.fd < 0 {
		return ErrClosed
	}

	if _, err := unix.InotifyRmWatch(m.fd, uint32(id)); err != nil {
		return fmt.Errorf("%w: remove %d: %w", ErrWatch, id, err)
	}

	return nil
}

// Read blocks until at least one event is queued and returns every event
// delivered by one kernel read, in delivery order.
func (m *Monitor) Read() ([]Event, error) {
	return m.read(0, false)
}

// ReadTimeout is like Read but gives up after timeout. It returns an empty
// slice and a nil error when the timeout elapses with nothing queued.
func (m *Monitor) ReadTimeout(timeout time.Duration) ([]Event, error) {
	return m.read(timeout, true)
}

// Close releases the descriptor, which drops every watch. Closing twice is a
// no-op.
func (m *Monitor) Close() error {
	if m.fd < 0 {
		return nil
	}

	err := unix.Close(m.fd)
	m.fd = -1
	if err != nil {
		return fmt.Errorf("failed to close inotify descriptor: %w", err)
	}

	return nil
}

// read waits for readiness, bounded by timeout when bounded is set, and
// decodes one buffer's worth of events.
func (m *Monitor) read(timeout time.Duration, bounded bool) ([]Event, error) {
	if m.fd < 0 {
		return nil, ErrClosed
	}

	var deadline time.Time
	if bounded {
		deadline = time.Now().Add(timeout)
	}

	for {
		wait := -1
		if bounded {
			wait = pollTimeout(time.Until(deadline))
		}

		fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}
		ready, err := unix.Poll(fds, wait)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, fmt.Errorf("%w: poll: %w", ErrRead, err)
		}

		if ready == 0 {
			if bounded {
				return nil, nil
			}
			continue
		}

		if fds[0].Revents&unix.POLLIN == 0 {
			return nil, fmt.Errorf("%w: poll revents 0x%x", ErrRead, fds[0].Revents)
		}

		n, err := unix.Read(m.fd, m.buf)
		if err != nil {
			// Another reader may have drained the queue, or a signal arrived.
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: unexpected end of inotify stream", ErrRead)
		}

		return decode(m.buf[:n])
	}
}

// decode splits a kernel read into events. Names are copied out of buf, so
// the returned events stay valid after buf is reused.
func decode(buf []byte) ([]Event, error) {
	var events []Event

	offset := 0
	for offset < len(buf) {
		if len(buf)-offset < unix.SizeofInotifyEvent {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrRead, offset)
		}

		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		start := offset + unix.SizeofInotifyEvent
		end := start + int(raw.Len)
		if end > len(buf) {
			return nil, fmt.Errorf("%w: truncated name at offset %d", ErrRead, offset)
		}

		name := buf[start:end]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}

		events = append(events, Event{
			WatchID: WatchID(raw.Wd),
			Mask:    Mask(raw.Mask),
			Cookie:  raw.Cookie,
			Name:    string(name),
		})

		offset = end
	}

	return events, nil
}

// pollTimeout converts a remaining duration to poll(2) milliseconds, rounding
// up so that a sub-millisecond budget still waits instead of spinning.
func pollTimeout(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	const maxInt32 = 1<<31 - 1
	if ms > maxInt32 {
		return maxInt32
	}
	return int(ms)
}
