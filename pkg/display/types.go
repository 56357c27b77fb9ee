//go:build linux

// Package display renders events, statistics and journal runs for the
// terminal or for machines.
//
// Two formats are available: text, which aligns columns and optionally colors
// event kinds, and json, which writes one JSON document per call (one line
// per event).
//
// Example usage:
//
//	f := display.New(display.Config{Format: display.FormatText, Color: true})
//	for _, e := range events {
//	    _ = f.FormatEvent(os.Stdout, e)
//	}
//	_ = f.FormatStats(os.Stdout, agg.Stats())
package display

import (
	"io"

	"github.com/0xmhha/treewatch/pkg/aggregator"
	"github.com/0xmhha/treewatch/pkg/inotify"
	"github.com/0xmhha/treewatch/pkg/journal"
	"github.com/0xmhha/treewatch/pkg/watcher"
)

// Format represents an output format.
type Format string

const (
	// FormatText displays aligned, optionally colored text.
	FormatText Format = "text"

	// FormatJSON displays JSON.
	FormatJSON Format = "json"
)

// Formatter formats treewatch output.
type Formatter interface {
	// FormatEvent writes one tree event.
	FormatEvent(w io.Writer, event watcher.Event) error

	// FormatRawEvent writes one raw monitor event.
	FormatRawEvent(w io.Writer, event inotify.Event) error

	// FormatStats writes an event summary.
	FormatStats(w io.Writer, stats aggregator.Statistics) error

	// FormatRuns writes a list of journal runs.
	FormatRuns(w io.Writer, runs []journal.Run) error

	// FormatRecords writes the records of one journal run.
	FormatRecords(w io.Writer, run journal.Run, records []journal.Record) error
}

// Config contains formatter configuration.
type Config struct {
	// Output format (default: text)
	Format Format

	// Color event kinds in text output
	Color bool

	// Prefix each text event with the time it was printed
	ShowTimestamps bool
}
