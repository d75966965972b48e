// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// FILE WATCHER
// =============================================================================

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 250 * time.Millisecond

// ReloadFunc is invoked with the path of a changed file after debounce.
type ReloadFunc func(path string)

// Watcher watches the plain-text config files (models list and system
// prompt) and invokes a callback when one changes. Editors replace
// files by rename, so the parent directories are watched rather than
// the files themselves.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    map[string]bool // absolute file paths to report
	onChange ReloadFunc

	mu      sync.Mutex
	pending map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for the given files. Directories are
// deduplicated before being added to the underlying watcher.
func NewWatcher(onChange ReloadFunc, files ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fsw,
		paths:    make(map[string]bool, len(files)),
		onChange: onChange,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		// A missing directory is non-fatal; the file simply won't reload.
		_ = fsw.Add(dir)
	}

	return w, nil
}

// Watch starts the event and debounce goroutines.
func (w *Watcher) Watch() {
	go w.processEvents()
	go w.processPending()
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// processEvents records write and create events for watched files.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.paths[abs] {
				continue
			}
			w.mu.Lock()
			w.pending[abs] = time.Now()
			w.mu.Unlock()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the files just stop reloading.
		}
	}
}

// processPending fires the callback for files quiet past the debounce.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			var ready []string

			w.mu.Lock()
			for path, last := range w.pending {
				if now.Sub(last) >= watchDebounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				w.onChange(path)
			}
		}
	}
}
