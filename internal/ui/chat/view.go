// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/orstudio/internal/model"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Starting orstudio..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	conv := m.manager.Conversation()

	left := m.theme.Header.Render("orstudio") +
		m.theme.Separator.Render(" │ ") +
		m.theme.StatusBar.Render(conv.Model)

	ctx := fmt.Sprintf("ctx %.0f%%", conv.GetContextPercent())
	ctxStyle := m.theme.StatusBar
	if conv.IsContextNearLimit() {
		ctxStyle = m.theme.Warning
	}
	right := ctxStyle.Render(ctx)
	if m.state == StateStreaming {
		right = m.theme.Streaming.Render(m.spinner.View()+" streaming") +
			m.theme.Separator.Render(" │ ") + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport rebuilds the transcript content and follows the tail.
func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.state == StateStreaming {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderTranscript() string {
	conv := m.manager.Conversation()
	if conv.IsEmpty() {
		return m.theme.KeyHint.Render("\n  No messages yet. Type below and press Enter.")
	}

	var b strings.Builder
	for i, msg := range conv.GetHistory() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMessage(msg *model.Message) string {
	var b strings.Builder

	label := m.roleStyle(msg.Role).Render(msg.Role.DisplayName())
	stamp := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	b.WriteString(label + " " + stamp)
	if msg.AttachmentName != "" {
		b.WriteString(" " + m.theme.Attachment.Render("📎 "+msg.AttachmentName))
	}
	b.WriteString("\n")

	// Reasoning trace above the answer, the way the model produced it.
	if m.showReasoning && msg.Role == model.RoleAssistant && msg.Reasoning != "" {
		b.WriteString(m.theme.Reasoning.Render(wrapText(msg.Reasoning, m.width-4)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderContent(msg))

	if n := len(msg.Images); n > 0 {
		b.WriteString("\n" + m.theme.Attachment.Render(
			fmt.Sprintf("[%d image(s) in reply — /images to save]", n)))
	}

	if m.cfg.UI.ShowTokens {
		if stats := msg.FormatStats(); stats != "" {
			b.WriteString("\n" + m.theme.Stats.Render(stats))
		}
	}

	return b.String()
}

// renderContent renders the message body. Finalized assistant messages
// get markdown rendering; everything else (including the live streaming
// message, which would flicker under re-rendering) stays plain.
func (m Model) renderContent(msg *model.Message) string {
	content := msg.Content
	if content == "" && msg.IsStreaming {
		return m.theme.Streaming.Render(m.spinner.View() + " thinking...")
	}

	if msg.Role == model.RoleAssistant && !msg.IsStreaming && m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	return wrapText(content, m.width-2)
}

func (m Model) roleStyle(role model.Role) lipgloss.Style {
	switch role {
	case model.RoleUser:
		return m.theme.UserLabel
	case model.RoleAssistant:
		return m.theme.AssistantLabel
	default:
		return m.theme.SystemLabel
	}
}

// wrapText wraps long lines to the given width via lipgloss.
func wrapText(text string, width int) string {
	if width < 10 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	if m.status != "" {
		style := m.theme.StatusBar
		if m.statusIsErr {
			style = m.theme.Error
		}
		return style.Render(truncateLine(m.status, m.width-2))
	}

	var hints []string
	for _, binding := range m.keys.ShortHelp() {
		help := binding.Help()
		hints = append(hints, help.Key+" "+help.Desc)
	}
	params := fmt.Sprintf("t=%.1f max=%d %s", m.params.Temperature, m.params.MaxTokens, m.params.Effort)
	line := strings.Join(hints, m.theme.Separator.Render(" · ")) +
		m.theme.Separator.Render(" │ ") + params
	return m.theme.KeyHint.Render(truncateLine(line, m.width-2))
}

// truncateLine keeps a status line to a single row.
func truncateLine(s string, width int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "…"
	}
	if width > 0 && lipgloss.Width(s) > width {
		runes := []rune(s)
		if len(runes) > width {
			s = string(runes[:width-1]) + "…"
		}
	}
	return s
}
