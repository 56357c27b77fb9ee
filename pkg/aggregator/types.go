//go:build linux

// Package aggregator summarizes delivered tree events.
//
// It counts events per kind and per parent directory and keeps the time
// range of the activity it has seen. Aggregators are safe for concurrent use.
//
// Example usage:
//
//	agg := aggregator.New(aggregator.Config{TopN: 5})
//	for _, e := range events {
//	    agg.Add(e)
//	}
//	stats := agg.Stats()
//	fmt.Printf("%d events, busiest: %v\n", stats.Total, stats.TopDirectories)
package aggregator

import (
	"time"

	"github.com/0xmhha/treewatch/pkg/watcher"
)

// Aggregator accumulates event statistics.
type Aggregator interface {
	// Add records one event.
	Add(event watcher.Event)

	// Stats returns a snapshot of the statistics so far.
	Stats() Statistics

	// Reset clears all statistics.
	Reset()
}

// Statistics is a snapshot of aggregated events.
type Statistics struct {
	// Total number of events, overflows included
	Total int

	// Number of QueueOverflow events
	Overflows int

	// Number of events whose subject is a directory
	DirectoryEvents int

	// Event count per kind name, e.g. "CREATE"
	ByKind map[string]int

	// Busiest parent directories, most events first
	TopDirectories []DirCount

	// Time of the first and last event
	FirstSeen time.Time
	LastSeen  time.Time
}

// DirCount is the number of events under one directory.
type DirCount struct {
	Dir   string
	Count int
}

// Config contains aggregator configuration.
type Config struct {
	// TopN limits TopDirectories (default: 10)
	TopN int
}
