//go:build linux

package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/0xmhha/treewatch/pkg/aggregator"
	"github.com/0xmhha/treewatch/pkg/inotify"
	"github.com/0xmhha/treewatch/pkg/journal"
	"github.com/0xmhha/treewatch/pkg/watcher"
)

const timeLayout = "2006-01-02 15:04:05"

type textFormatter struct {
	config Config
	now    func() time.Time

	create   *color.Color
	remove   *color.Color
	move     *color.Color
	modify   *color.Color
	overflow *color.Color
	plain    *color.Color
}

func newTextFormatter(cfg Config) *textFormatter {
	f := &textFormatter{
		config:   cfg,
		now:      time.Now,
		create:   color.New(color.FgGreen),
		remove:   color.New(color.FgRed),
		move:     color.New(color.FgYellow),
		modify:   color.New(color.FgCyan),
		overflow: color.New(color.FgMagenta, color.Bold),
		plain:    color.New(),
	}

	for _, c := range []*color.Color{f.create, f.remove, f.move, f.modify, f.overflow, f.plain} {
		if cfg.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return f
}

// colorFor picks the color of an event kind.
func (f *textFormatter) colorFor(mask inotify.Mask) *color.Color {
	switch {
	case mask.Has(inotify.QueueOverflow):
		return f.overflow
	case mask.Any(inotify.Create):
		return f.create
	case mask.Any(inotify.Delete | inotify.DeleteSelf):
		return f.remove
	case mask.Any(inotify.Move | inotify.MoveSelf):
		return f.move
	case mask.Any(inotify.Modify | inotify.CloseWrite | inotify.Attrib):
		return f.modify
	default:
		return f.plain
	}
}

func (f *textFormatter) prefix() string {
	if !f.config.ShowTimestamps {
		return ""
	}
	return f.now().Format("15:04:05.000") + " "
}

// FormatEvent implements Formatter.FormatEvent.
func (f *textFormatter) FormatEvent(w io.Writer, event watcher.Event) error {
	kind := f.colorFor(event.Mask).Sprint(fmt.Sprintf("%-13s", event.Mask.String()))

	path := event.Path
	if event.Mask.Has(inotify.QueueOverflow) {
		path = "(events lost)"
	}

	_, err := fmt.Fprintf(w, "%s%s %s\n", f.prefix(), kind, path)
	return err
}

// FormatRawEvent implements Formatter.FormatRawEvent.
func (f *textFormatter) FormatRawEvent(w io.Writer, event inotify.Event) error {
	kind := f.colorFor(event.Mask).Sprint(fmt.Sprintf("%-13s", event.Mask.String()))

	name := event.Name
	if name == "" {
		name = "(self)"
	}
	if event.Cookie != 0 {
		name = fmt.Sprintf("%s cookie=%d", name, event.Cookie)
	}

	_, err := fmt.Fprintf(w, "%swd=%-4d %s %s\n", f.prefix(), event.WatchID, kind, name)
	return err
}

// FormatStats implements Formatter.FormatStats.
func (f *textFormatter) FormatStats(w io.Writer, stats aggregator.Statistics) error {
	if err := writeHeader(w, "Event Summary"); err != nil {
		return err
	}

	rows := [][]string{
		{"Events", humanize.Comma(int64(stats.Total))},
		{"Directory events", humanize.Comma(int64(stats.DirectoryEvents))},
		{"Overflows", humanize.Comma(int64(stats.Overflows))},
	}
	if !stats.FirstSeen.IsZero() {
		rows = append(rows,
			[]string{"First event", stats.FirstSeen.Format(timeLayout)},
			[]string{"Last event", stats.LastSeen.Format(timeLayout)},
		)
	}
	if err := writeTable(w, []string{"Metric", "Value"}, rows); err != nil {
		return err
	}

	if len(stats.ByKind) > 0 {
		kinds := make([]string, 0, len(stats.ByKind))
		for k := range stats.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		kindRows := make([][]string, 0, len(kinds))
		for _, k := range kinds {
			kindRows = append(kindRows, []string{k, humanize.Comma(int64(stats.ByKind[k]))})
		}

		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := writeTable(w, []string{"Kind", "Events"}, kindRows); err != nil {
			return err
		}
	}

	if len(stats.TopDirectories) > 0 {
		dirRows := make([][]string, 0, len(stats.TopDirectories))
		for _, d := range stats.TopDirectories {
			dirRows = append(dirRows, []string{humanize.Comma(int64(d.Count)), d.Dir})
		}

		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := writeTable(w, []string{"Events", "Directory"}, dirRows); err != nil {
			return err
		}
	}

	return nil
}

// FormatRuns implements Formatter.FormatRuns.
func (f *textFormatter) FormatRuns(w io.Writer, runs []journal.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No journaled runs.")
		return err
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			humanize.RelTime(run.StartedAt, f.now(), "ago", "from now"),
			humanize.Comma(int64(run.EventCount)),
			strings.Join(run.Roots, ","),
		})
	}

	return writeTable(w, []string{"Run", "Started", "Events", "Roots"}, rows)
}

// FormatRecords implements Formatter.FormatRecords.
func (f *textFormatter) FormatRecords(w io.Writer, run journal.Run, records []journal.Record) error {
	if _, err := fmt.Fprintf(w, "Run %s\nRoots:   %s\nMask:    %s\nStarted: %s\nEvents:  %s\n\n",
		run.ID,
		strings.Join(run.Roots, ", "),
		run.Mask,
		run.StartedAt.Format(timeLayout),
		humanize.Comma(int64(run.EventCount))); err != nil {
		return err
	}

	for _, rec := range records {
		kind := f.colorFor(rec.Mask).Sprint(fmt.Sprintf("%-13s", rec.Mask.String()))
		path := rec.Path
		if rec.Mask.Has(inotify.QueueOverflow) {
			path = "(events lost)"
		}
		if _, err := fmt.Fprintf(w, "%6d  %s  %s %s\n",
			rec.Seq, rec.Time.Format(timeLayout), kind, path); err != nil {
			return err
		}
	}

	return nil
}
