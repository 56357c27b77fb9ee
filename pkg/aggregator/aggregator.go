//go:build linux

package aggregator

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/0xmhha/treewatch/pkg/inotify"
	"github.com/0xmhha/treewatch/pkg/watcher"
)

type aggregator struct {
	config Config
	now    func() time.Time

	mu    sync.RWMutex
	stats Statistics
	dirs  map[string]int
}

// New creates a new aggregator.
func New(cfg Config) Aggregator {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}

	return &aggregator{
		config: cfg,
		now:    time.Now,
		stats:  Statistics{ByKind: make(map[string]int)},
		dirs:   make(map[string]int),
	}
}

// Add implements Aggregator.Add.
func (a *aggregator) Add(event watcher.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.stats.Total == 0 {
		a.stats.FirstSeen = now
	}
	a.stats.LastSeen = now
	a.stats.Total++

	if event.Mask.Has(inotify.QueueOverflow) {
		a.stats.Overflows++
		return
	}

	if event.Mask.Has(inotify.IsDir) {
		a.stats.DirectoryEvents++
	}

	a.stats.ByKind[Kind(event.Mask)]++
	a.dirs[filepath.Dir(event.Path)]++
}

// Stats implements Aggregator.Stats.
func (a *aggregator) Stats() Statistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats

	stats.ByKind = make(map[string]int, len(a.stats.ByKind))
	for k, v := range a.stats.ByKind {
		stats.ByKind[k] = v
	}

	stats.TopDirectories = make([]DirCount, 0, len(a.dirs))
	for dir, n := range a.dirs {
		stats.TopDirectories = append(stats.TopDirectories, DirCount{Dir: dir, Count: n})
	}
	sort.Slice(stats.TopDirectories, func(i, j int) bool {
		di, dj := stats.TopDirectories[i], stats.TopDirectories[j]
		if di.Count != dj.Count {
			return di.Count > dj.Count
		}
		return di.Dir < dj.Dir
	})
	if len(stats.TopDirectories) > a.config.TopN {
		stats.TopDirectories = stats.TopDirectories[:a.config.TopN]
	}

	return stats
}

// Reset implements Aggregator.Reset.
func (a *aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats = Statistics{ByKind: make(map[string]int)}
	a.dirs = make(map[string]int)
}

// Kind names the event kind of mask without the IsDir qualifier.
func Kind(mask inotify.Mask) string {
	return (mask &^ inotify.IsDir).String()
}
