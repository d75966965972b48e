// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewThemeVariants(t *testing.T) {
	if !NewTheme("dark").DarkBg {
		t.Error("dark variant should report a dark background")
	}
	if NewTheme("light").DarkBg {
		t.Error("light variant should report a light background")
	}
	// Auto must not panic regardless of terminal detection.
	_ = NewTheme("auto")
}

func TestMarkdownRendererHandlesZeroWidth(t *testing.T) {
	theme := NewTheme("dark")
	renderer := theme.NewMarkdownRenderer(0)
	if renderer == nil {
		t.Skip("renderer unavailable in this environment")
	}
	out, err := renderer.Render("# Title\n\nSome **bold** text.")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if out == "" {
		t.Error("rendered markdown is empty")
	}
}
