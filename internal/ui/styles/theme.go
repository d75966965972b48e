// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// THEME
// =============================================================================

// Theme bundles the pre-built Lip Gloss styles the chat view renders
// with. Build one at startup and share it; styles are immutable.
type Theme struct {
	// Terminal capabilities detected at construction.
	ColorProfile termenv.Profile
	DarkBg       bool

	// Chrome
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	KeyHint   lipgloss.Style
	Separator lipgloss.Style

	// Message rendering
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	Timestamp      lipgloss.Style
	Reasoning      lipgloss.Style
	Stats          lipgloss.Style
	Attachment     lipgloss.Style

	// States
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Success   lipgloss.Style
	Streaming lipgloss.Style

	// Input
	Prompt      lipgloss.Style
	Placeholder lipgloss.Style
}

// NewTheme builds a theme for the named variant ("dark", "light", or
// "auto"). Auto defers to termenv background detection.
func NewTheme(variant string) *Theme {
	dark := true
	switch variant {
	case "light":
		dark = false
	case "dark":
		dark = true
	default:
		dark = termenv.HasDarkBackground()
	}

	return &Theme{
		ColorProfile: termenv.ColorProfile(),
		DarkBg:       dark,

		Header: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Padding(0, 1),
		KeyHint: lipgloss.NewStyle().
			Foreground(TextMuted),
		Separator: lipgloss.NewStyle().
			Foreground(Overlay),

		UserLabel: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		AssistantLabel: lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true),
		SystemLabel: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Bold(true),
		Timestamp: lipgloss.NewStyle().
			Foreground(TextMuted),
		Reasoning: lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true),
		Stats: lipgloss.NewStyle().
			Foreground(TextMuted),
		Attachment: lipgloss.NewStyle().
			Foreground(Amber),

		Error: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(Amber),
		Success: lipgloss.NewStyle().
			Foreground(Emerald),
		Streaming: lipgloss.NewStyle().
			Foreground(Amber),

		Prompt: lipgloss.NewStyle().
			Foreground(Emerald).
			Bold(true),
		Placeholder: lipgloss.NewStyle().
			Foreground(TextMuted),
	}
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// NewMarkdownRenderer builds a glamour renderer matched to the theme and
// word-wrapped to width. Returns nil when the renderer cannot be built;
// callers fall back to plain text.
func (t *Theme) NewMarkdownRenderer(width int) *glamour.TermRenderer {
	if width <= 0 {
		width = 80
	}

	style := glamour.WithStandardStyle("dark")
	if !t.DarkBg {
		style = glamour.WithStandardStyle("light")
	}
	if t.ColorProfile == termenv.Ascii {
		style = glamour.WithStandardStyle("notty")
	}

	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return renderer
}
