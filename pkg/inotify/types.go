//go:build linux

// Package inotify provides a thin, synchronous wrapper around one Linux
// inotify instance.
//
// A Monitor owns a single inotify descriptor. Watches are added and removed
// explicitly, and Read decodes every record the kernel has queued into a
// slice of Events. There are no background goroutines: the caller's thread
// blocks inside Read until data is ready or the timeout elapses.
//
// Example usage:
//
//	m, err := inotify.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	if _, err := m.Add("/tmp/dir", inotify.Create|inotify.Delete); err != nil {
//	    log.Fatal(err)
//	}
//
//	events, err := m.ReadTimeout(time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range events {
//	    fmt.Printf("%s %s\n", e.Mask, e.Name)
//	}
package inotify

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// WatchID is a watch descriptor returned by the kernel. It is unique among
// the active watches of one Monitor and meaningless once the watch is removed
// or the Monitor is closed.
type WatchID int32

// Mask is a bitset of inotify event kinds.
type Mask uint32

// Event kinds a caller may subscribe to. The values are the kernel's.
const (
	Access       Mask = unix.IN_ACCESS        // File was accessed
	Modify       Mask = unix.IN_MODIFY        // File was modified
	Attrib       Mask = unix.IN_ATTRIB        // Metadata changed
	CloseWrite   Mask = unix.IN_CLOSE_WRITE   // Writable file was closed
	CloseNowrite Mask = unix.IN_CLOSE_NOWRITE // Read-only file was closed
	Open         Mask = unix.IN_OPEN          // File was opened
	MovedFrom    Mask = unix.IN_MOVED_FROM    // File was moved out of a watched directory
	MovedTo      Mask = unix.IN_MOVED_TO      // File was moved into a watched directory
	Create       Mask = unix.IN_CREATE        // Child was created
	Delete       Mask = unix.IN_DELETE        // Child was deleted
	DeleteSelf   Mask = unix.IN_DELETE_SELF   // Watched object was deleted
	MoveSelf     Mask = unix.IN_MOVE_SELF     // Watched object was moved
)

// Qualifier and kernel-generated bits. These are never requested, only
// reported.
const (
	IsDir         Mask = unix.IN_ISDIR      // Subject of the event is a directory
	Unmount       Mask = unix.IN_UNMOUNT    // Backing filesystem was unmounted
	QueueOverflow Mask = unix.IN_Q_OVERFLOW // Kernel event queue overflowed
	Ignored       Mask = unix.IN_IGNORED    // Watch was removed
)

// Convenience sets.
const (
	Close     = CloseWrite | CloseNowrite
	Move      = MovedFrom | MovedTo
	AllEvents = Access | Modify | Attrib | Close | Open | Move |
		Create | Delete | DeleteSelf | MoveSelf
)

// maskNames lists every named bit in display order.
var maskNames = []struct {
	mask Mask
	name string
}{
	{Access, "ACCESS"},
	{Modify, "MODIFY"},
	{Attrib, "ATTRIB"},
	{CloseWrite, "CLOSE_WRITE"},
	{CloseNowrite, "CLOSE_NOWRITE"},
	{Open, "OPEN"},
	{MovedFrom, "MOVED_FROM"},
	{MovedTo, "MOVED_TO"},
	{Create, "CREATE"},
	{Delete, "DELETE"},
	{DeleteSelf, "DELETE_SELF"},
	{MoveSelf, "MOVE_SELF"},
	{Unmount, "UNMOUNT"},
	{QueueOverflow, "Q_OVERFLOW"},
	{Ignored, "IGNORED"},
	{IsDir, "ISDIR"},
}

// maskAliases are the extra names accepted by ParseMask.
var maskAliases = map[string]Mask{
	"CLOSE": Close,
	"MOVE":  Move,
	"ALL":   AllEvents,
}

// Has reports whether all bits of h are set in m.
func (m Mask) Has(h Mask) bool { return m&h == h }

// Any reports whether m and h share at least one bit.
func (m Mask) Any(h Mask) bool { return m&h != 0 }

// String renders the set bits joined by "|", e.g. "CREATE|ISDIR".
func (m Mask) String() string {
	var b strings.Builder
	rest := m
	for _, n := range maskNames {
		if m&n.mask == 0 {
			continue
		}
		rest &^= n.mask
		b.WriteString("|")
		b.WriteString(n.name)
	}
	if rest != 0 {
		fmt.Fprintf(&b, "|0x%x", uint32(rest))
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()[1:]
}

// ParseMask parses event names such as "create", "CLOSE_WRITE" or "all"
// into a mask. Names are case-insensitive.
func ParseMask(names []string) (Mask, error) {
	var m Mask
	for _, raw := range names {
		name := strings.ToUpper(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if alias, ok := maskAliases[name]; ok {
			m |= alias
			continue
		}
		found := false
		for _, n := range maskNames {
			if n.name == name {
				m |= n.mask
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
		}
	}
	return m, nil
}

// Event is one decoded inotify record.
type Event struct {
	// WatchID identifies the watch the event was reported on.
	WatchID WatchID

	// Mask holds the event kind bits plus qualifiers such as IsDir.
	Mask Mask

	// Cookie pairs MovedFrom and MovedTo records of one rename; 0 otherwise.
	Cookie uint32

	// Name is the child entry the event refers to. It is empty when the event
	// concerns the watched object itself.
	Name string
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("wd=%d %-13s %q", e.WatchID, e.Mask.String(), e.Name)
}
