// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tempfiles

import (
	"os"
	"strings"
	"testing"
)

func TestCreateAndCleanup(t *testing.T) {
	r := NewRegistry()

	path, err := r.Create("chat-*.md", []byte("# export"))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !strings.HasSuffix(path, ".md") {
		t.Errorf("pattern suffix not preserved: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("temp file unreadable: %v", err)
	}
	if string(data) != "# export" {
		t.Errorf("content = %q", data)
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}

	if err := r.CleanupAll(); err != nil {
		t.Fatalf("CleanupAll() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("temp file survived cleanup")
	}
	if r.Count() != 0 {
		t.Errorf("count = %d after cleanup", r.Count())
	}
}

func TestCleanupToleratesMissingFiles(t *testing.T) {
	r := NewRegistry()
	path, err := r.Create("gone-*.txt", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	os.Remove(path)

	if err := r.CleanupAll(); err != nil {
		t.Errorf("CleanupAll() error for already-deleted file: %v", err)
	}
}

func TestConcurrentRegister(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.Register("/nonexistent/never-created")
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if r.Count() != 800 {
		t.Errorf("count = %d, want 800", r.Count())
	}
}
