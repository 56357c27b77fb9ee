//go:build linux

package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/treewatch/pkg/inotify"
	"github.com/0xmhha/treewatch/pkg/logger"
	"github.com/0xmhha/treewatch/pkg/watcher"
)

// Bucket names
var (
	bucketRuns   = []byte("runs")   // Run ID -> Run
	bucketEvents = []byte("events") // Run ID -> nested bucket of Seq -> Record
)

// Journal is a BoltDB-backed event journal. It is safe for concurrent use.
type Journal struct {
	db     *bolt.DB
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the journal database.
//
// Parameters:
//   - cfg: Journal configuration
//   - log: Logger instance
//
// Returns:
//   - Journal ready for use
//   - Error if the database cannot be created or opened
func Open(cfg Config, log logger.Logger) (*Journal, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := expandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketRuns); createErr != nil {
			return fmt.Errorf("failed to create runs bucket: %w", createErr)
		}
		if _, createErr := tx.CreateBucketIfNotExists(bucketEvents); createErr != nil {
			return fmt.Errorf("failed to create events bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Debug("journal opened", "db_path", dbPath)

	return &Journal{
		db:     db,
		logger: log,
	}, nil
}

// BeginRun starts a new run over roots with the subscribed mask.
func (j *Journal) BeginRun(roots []string, mask inotify.Mask) (*Run, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}

	now := time.Now()
	run := &Run{
		ID:        uuid.New().String(),
		Roots:     append([]string(nil), roots...),
		Mask:      mask,
		StartedAt: now,
		UpdatedAt: now,
	}

	err := j.db.Update(func(tx *bolt.Tx) error {
		if err := putRun(tx, run); err != nil {
			return err
		}
		if _, err := tx.Bucket(bucketEvents).CreateBucket([]byte(run.ID)); err != nil {
			return fmt.Errorf("failed to create run events bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	j.logger.Info("journal run started", "run", run.ID)

	return run, nil
}

// Append records events for a run in one transaction.
func (j *Journal) Append(runID string, events []watcher.Event) error {
	if len(events) == 0 {
		return nil
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	now := time.Now()

	return j.db.Update(func(tx *bolt.Tx) error {
		run, err := getRun(tx, runID)
		if err != nil {
			return err
		}

		b := tx.Bucket(bucketEvents).Bucket([]byte(runID))
		if b == nil {
			return fmt.Errorf("%w: %s has no event bucket", ErrRunNotFound, runID)
		}

		for _, ev := range events {
			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}

			data, err := json.Marshal(Record{Seq: seq, Time: now, Mask: ev.Mask, Path: ev.Path})
			if err != nil {
				return fmt.Errorf("failed to marshal record: %w", err)
			}

			if err := b.Put(seqKey(seq), data); err != nil {
				return fmt.Errorf("failed to store record: %w", err)
			}
		}

		run.EventCount += len(events)
		run.UpdatedAt = now
		return putRun(tx, run)
	})
}

// Runs returns every run, newest first.
func (j *Journal) Runs() ([]Run, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}

	var runs []Run
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(_, data []byte) error {
			var run Run
			if err := json.Unmarshal(data, &run); err != nil {
				return fmt.Errorf("failed to unmarshal run: %w", err)
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(a, b int) bool {
		return runs[a].StartedAt.After(runs[b].StartedAt)
	})

	return runs, nil
}

// Find returns the run whose ID equals or starts with prefix.
func (j *Journal) Find(prefix string) (*Run, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty ID", ErrRunNotFound)
	}

	runs, err := j.Runs()
	if err != nil {
		return nil, err
	}

	var match *Run
	for i := range runs {
		if runs[i].ID == prefix {
			return &runs[i], nil
		}
		if strings.HasPrefix(runs[i].ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
			}
			match = &runs[i]
		}
	}

	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}

	return match, nil
}

// Events returns the records of a run in sequence order.
func (j *Journal) Events(runID string) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}

	var records []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents).Bucket([]byte(runID))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}

		// Big-endian keys iterate in sequence order.
		return b.ForEach(func(_, data []byte) error {
			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Delete removes a run and its records.
func (j *Journal) Delete(runID string) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	err := j.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		if runs.Get([]byte(runID)) == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}

		if err := runs.Delete([]byte(runID)); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}

		events := tx.Bucket(bucketEvents)
		if events.Bucket([]byte(runID)) != nil {
			if err := events.DeleteBucket([]byte(runID)); err != nil {
				return fmt.Errorf("failed to delete run events: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	j.logger.Info("journal run deleted", "run", runID)
	return nil
}

// Close closes the database. Closing twice is a no-op.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func getRun(tx *bolt.Tx, runID string) (*Run, error) {
	data := tx.Bucket(bucketRuns).Get([]byte(runID))
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

func putRun(tx *bolt.Tx, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := tx.Bucket(bucketRuns).Put([]byte(run.ID), data); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// expandHome expands a leading "~" to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
