package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/treewatch/pkg/logger"
)

// ReloadDebounce is how long the reloader waits after the last change to the
// file before reading it. Editors often write a file in several steps.
const ReloadDebounce = 100 * time.Millisecond

// Reloader reloads a configuration file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which replace the file by renaming are followed.
type Reloader struct {
	fsw      *fsnotify.Watcher
	loader   Loader
	path     string
	logger   logger.Logger
	onChange func(*Config)

	mu     sync.Mutex
	timer  *time.Timer
	closed bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Watch starts watching the configuration file at path. onChange is called
// from a background goroutine with every configuration that loads and
// validates; invalid revisions are logged and skipped.
func Watch(path string, log logger.Logger, onChange func(*Config)) (*Reloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	r := &Reloader{
		fsw:      fsw,
		loader:   NewLoader(abs),
		path:     abs,
		logger:   log,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.processEvents()

	log.Debug("watching config file", "path", abs)

	return r, nil
}

func (r *Reloader) processEvents() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopChan:
			return

		case event, ok := <-r.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			r.schedule()

		case err, ok := <-r.fsw.Errors:
			if !ok {
				return
			}
			r.logger.Warn("config watcher error", "error", err)
		}
	}
}

// schedule debounces a reload.
func (r *Reloader) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(ReloadDebounce, r.reload)
}

func (r *Reloader) reload() {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}

	cfg, err := r.loader.Load()
	if err != nil {
		r.logger.Warn("ignoring invalid config revision", "path", r.path, "error", err)
		return
	}

	r.logger.Info("config reloaded", "path", r.path)
	r.onChange(cfg)
}

// Close stops watching. Closing twice is a no-op.
func (r *Reloader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()

	close(r.stopChan)
	err := r.fsw.Close()
	r.wg.Wait()

	if err != nil {
		return fmt.Errorf("failed to close config watcher: %w", err)
	}
	return nil
}
