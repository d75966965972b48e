// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/orstudio/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	labelStyle = lipgloss.NewStyle().Foreground(styles.Cyan)
	errStyle   = lipgloss.NewStyle().Foreground(styles.Rose)
	statStyle  = lipgloss.NewStyle().Foreground(styles.TextMuted)
	faintStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	markdownRenderer     *glamour.TermRenderer
	markdownRendererOnce sync.Once
)

// renderMarkdown renders markdown for terminal display, falling back to
// the raw content if the renderer is unavailable or fails.
func renderMarkdown(content string) string {
	markdownRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(GetTerminalWidth()),
		)
		if err == nil {
			markdownRenderer = r
		}
	})

	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse prints a completed response. Markdown rendering is
// only applied when stdout is a TTY so piped output stays unmangled.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
		return
	}
	fmt.Print(response)
	fmt.Println()
}
