// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tempfiles tracks temporary files created for downloads so
// they can be removed on shutdown.
//
// Export and image-decode paths write their artifacts to the OS temp
// directory and register them in a Registry the shell constructs and
// passes down; the shell calls CleanupAll once on exit.
package tempfiles

import (
	"fmt"
	"os"
	"sync"
)

// Registry tracks temporary file paths for deferred cleanup.
// Safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	paths []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Create writes data to a new file in the OS temp directory and
// registers it for cleanup. The pattern follows os.CreateTemp: a "*"
// is replaced by a random string, so "chat-*.md" keeps the extension.
func (r *Registry) Create(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	r.Register(path)
	return path, nil
}

// Register adds an existing path to the registry.
func (r *Registry) Register(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Count returns the number of registered paths.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// CleanupAll removes every registered file and empties the registry.
// Already-deleted files are not an error; the first other removal
// error is returned after all paths have been attempted.
func (r *Registry) CleanupAll() error {
	r.mu.Lock()
	paths := r.paths
	r.paths = nil
	r.mu.Unlock()

	var firstErr error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to remove %s: %w", path, err)
			}
		}
	}
	return firstErr
}
