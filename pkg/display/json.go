//go:build linux

package display

import (
	"encoding/json"
	"io"
	"time"

	"github.com/0xmhha/treewatch/pkg/aggregator"
	"github.com/0xmhha/treewatch/pkg/inotify"
	"github.com/0xmhha/treewatch/pkg/journal"
	"github.com/0xmhha/treewatch/pkg/watcher"
)

type jsonFormatter struct {
	config Config
}

// jsonEvent is the wire form of a tree event or journal record.
type jsonEvent struct {
	Seq   uint64     `json:"seq,omitempty"`
	Time  *time.Time `json:"time,omitempty"`
	Mask  string     `json:"mask"`
	Path  string     `json:"path"`
	IsDir bool       `json:"is_dir"`
}

type jsonRawEvent struct {
	WatchID inotify.WatchID `json:"wd"`
	Mask    string          `json:"mask"`
	Cookie  uint32          `json:"cookie,omitempty"`
	Name    string          `json:"name"`
}

type jsonRun struct {
	ID         string    `json:"id"`
	Roots      []string  `json:"roots"`
	Mask       string    `json:"mask"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	EventCount int       `json:"event_count"`
}

func toJSONRun(run journal.Run) jsonRun {
	return jsonRun{
		ID:         run.ID,
		Roots:      run.Roots,
		Mask:       run.Mask.String(),
		StartedAt:  run.StartedAt,
		UpdatedAt:  run.UpdatedAt,
		EventCount: run.EventCount,
	}
}

// FormatEvent implements Formatter.FormatEvent.
func (f *jsonFormatter) FormatEvent(w io.Writer, event watcher.Event) error {
	return json.NewEncoder(w).Encode(jsonEvent{
		Mask:  event.Mask.String(),
		Path:  event.Path,
		IsDir: event.Mask.Has(inotify.IsDir),
	})
}

// FormatRawEvent implements Formatter.FormatRawEvent.
func (f *jsonFormatter) FormatRawEvent(w io.Writer, event inotify.Event) error {
	return json.NewEncoder(w).Encode(jsonRawEvent{
		WatchID: event.WatchID,
		Mask:    event.Mask.String(),
		Cookie:  event.Cookie,
		Name:    event.Name,
	})
}

// FormatStats implements Formatter.FormatStats.
func (f *jsonFormatter) FormatStats(w io.Writer, stats aggregator.Statistics) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(stats)
}

// FormatRuns implements Formatter.FormatRuns.
func (f *jsonFormatter) FormatRuns(w io.Writer, runs []journal.Run) error {
	out := make([]jsonRun, 0, len(runs))
	for _, run := range runs {
		out = append(out, toJSONRun(run))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// FormatRecords implements Formatter.FormatRecords.
func (f *jsonFormatter) FormatRecords(w io.Writer, run journal.Run, records []journal.Record) error {
	out := struct {
		Run    jsonRun     `json:"run"`
		Events []jsonEvent `json:"events"`
	}{
		Run:    toJSONRun(run),
		Events: make([]jsonEvent, 0, len(records)),
	}

	for i := range records {
		rec := records[i]
		out.Events = append(out.Events, jsonEvent{
			Seq:   rec.Seq,
			Time:  &rec.Time,
			Mask:  rec.Mask.String(),
			Path:  rec.Path,
			IsDir: rec.Mask.Has(inotify.IsDir),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
