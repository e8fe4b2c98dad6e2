package schema

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Debounce groups bursts of writes into one rebuild (default 200ms).
	Debounce time.Duration
}

// RebuildFunc receives the result of every debounced rebuild.
type RebuildFunc func(schema *TokenSchema, err error)

// Watcher rebuilds the schema whenever one of its source artifacts changes.
// Rebuilds go through the cache, so the fingerprint invalidates the stale
// entry and the fresh schema is persisted.
//
// Usage:
//
//	w, err := schema.NewWatcher(cache, opts, schema.WatchOptions{}, logger)
//	if err != nil {
//	    return err
//	}
//	err = w.Start(func(s *schema.TokenSchema, err error) { ... })
//	defer w.Stop()
type Watcher struct {
	watcher *fsnotify.Watcher
	cache   *Cache
	opts    Options
	logger  *slog.Logger
	delay   time.Duration

	artifacts map[string]bool

	timer   *time.Timer
	timerMu sync.Mutex

	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex

	rebuilds int
}

// NewWatcher creates a watcher for the artifacts described by opts.
func NewWatcher(cache *Cache, opts Options, wo WatchOptions, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if wo.Debounce <= 0 {
		wo.Debounce = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts = opts.Resolved()
	artifacts := make(map[string]bool, 3)
	for _, p := range opts.Artifacts() {
		artifacts[filepath.Clean(p)] = true
	}

	return &Watcher{
		watcher:   fw,
		cache:     cache,
		opts:      opts,
		logger:    logger,
		delay:     wo.Debounce,
		artifacts: artifacts,
		stopChan:  make(chan struct{}),
	}, nil
}

// Start watches the directories holding the artifacts and calls fn after
// each debounced rebuild.
func (w *Watcher) Start(fn RebuildFunc) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	w.mu.Unlock()

	// Directories, not files: editors replace files on save.
	dirs := make(map[string]bool)
	for p := range w.artifacts {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.logger.Info("schema watcher started", "root", w.opts.SassRoot)
	go w.eventLoop(fn)
	return nil
}

// Stop ends watching. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopChan)

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	err := w.watcher.Close()
	w.logger.Info("schema watcher stopped")
	return err
}

// Rebuilds returns how many rebuilds have run.
func (w *Watcher) Rebuilds() int {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	return w.rebuilds
}

func (w *Watcher) eventLoop(fn RebuildFunc) {
	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.artifacts[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("schema artifact changed", "op", event.Op.String(), "file", event.Name)
			w.schedule(fn)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("schema watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(fn RebuildFunc) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		s, _, err := w.cache.BuildWithCache(w.opts)
		if err != nil {
			w.logger.Warn("schema rebuild failed", "root", w.opts.SassRoot, "error", err)
		} else {
			w.logger.Info("schema rebuilt", "root", w.opts.SassRoot, "tokens", len(s.Tokens))
		}
		w.timerMu.Lock()
		w.rebuilds++
		w.timerMu.Unlock()
		if fn != nil {
			fn(s, err)
		}
	})
}
