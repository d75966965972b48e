// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/orstudio/internal/export"
	"github.com/jeranaias/orstudio/internal/model"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// The transcript shows the spinner while the reply is empty.
		m.refreshViewport()
		return m, cmd

	case StreamSnapshotMsg:
		return m.handleSnapshot(msg)

	case StreamClosedMsg:
		m.events = nil
		m.streamingID = ""
		// Normally the final snapshot already finished the turn; this is
		// the fallback when the pipeline died without one.
		if m.state == StateStreaming {
			cmd := m.finishTurn()
			m.refreshViewport()
			return m, cmd
		}
		return m, nil

	case StatusExpiredMsg:
		if msg.SetAt.Equal(m.statusSetAt) {
			m.status = ""
		}
		return m, nil

	case AutoSaveTickMsg:
		var cmd tea.Cmd
		if m.store != nil && m.manager.ShouldAutoSave() {
			cmd = m.saveConversation()
		}
		return m, tea.Batch(cmd, autoSaveTick())

	case SavedMsg:
		if msg.Err != nil {
			return m, m.setStatus("Save failed: "+msg.Err.Error(), true)
		}
		m.manager.MarkClean()
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			return m, m.setStatus("Export failed: "+msg.Err.Error(), true)
		}
		return m, m.setStatus("Saved "+msg.Path, false)

	case CatalogReloadedMsg:
		m.catalog = model.NewCatalog(msg.IDs)
		return m, m.setStatus(fmt.Sprintf("Model list reloaded (%d models)", m.catalog.Len()), false)

	case SystemPromptReloadedMsg:
		m.systemPrompt = msg.Prompt
		m.manager.Conversation().SystemPrompt = msg.Prompt
		return m, m.setStatus("System prompt reloaded", false)
	}

	return m.updateComponents(msg)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Header, input area, and status bar frame the transcript.
	transcriptHeight := msg.Height - 1 - inputHeight - 1
	if transcriptHeight < 1 {
		transcriptHeight = 1
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = transcriptHeight
	m.input.SetWidth(msg.Width)

	m.renderer = m.theme.NewMarkdownRenderer(msg.Width - 2)
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.manager.StopGeneration()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.state == StateStreaming {
			m.manager.StopGeneration()
			return m, m.setStatus("Stopping...", false)
		}
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		cmd := m.startTurn(text)
		m.refreshViewport()
		return m, cmd

	case key.Matches(msg, m.keys.Clear):
		if m.state == StateStreaming {
			return m, m.setStatus("Stop the reply before clearing", true)
		}
		m.manager.Conversation().ClearHistory()
		m.manager.MarkDirty()
		m.refreshViewport()
		return m, m.setStatus("Conversation cleared", false)

	case key.Matches(msg, m.keys.NextModel):
		return m.cycleModel(+1)

	case key.Matches(msg, m.keys.PrevModel):
		return m.cycleModel(-1)

	case key.Matches(msg, m.keys.ToggleReasoning):
		m.showReasoning = !m.showReasoning
		m.refreshViewport()
		if m.showReasoning {
			return m, m.setStatus("Reasoning traces shown", false)
		}
		return m, m.setStatus("Reasoning traces hidden", false)

	case key.Matches(msg, m.keys.Export):
		return m, m.exportMarkdown()

	case key.Matches(msg, m.keys.Download):
		return m, m.downloadLastReply()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.ScrollTop):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.ScrollBottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	return m.updateComponents(msg)
}

// cycleModel switches the conversation to the next or previous catalog
// entry. Blocked mid-stream; the in-flight request already carries the
// old model.
func (m Model) cycleModel(direction int) (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, m.setStatus("Stop the reply before switching models", true)
	}

	conv := m.manager.Conversation()
	if direction > 0 {
		conv.Model = m.catalog.Next(conv.Model)
	} else {
		conv.Model = m.catalog.Prev(conv.Model)
	}
	return m, m.setStatus("Model: "+conv.Model, false)
}

// updateComponents forwards a message to the focused input component.
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

func (m Model) handleSnapshot(msg StreamSnapshotMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingID {
		// Late event from a previous turn; keep draining the channel.
		return m, m.waitForStream()
	}

	snap := msg.Snapshot
	if snap.Answer != "" && m.stats != nil {
		m.stats.RecordFirstToken()
	}

	conv := m.manager.Conversation()
	if last := conv.GetLastMessage(); last != nil && last.ID == msg.MessageID {
		last.ApplyStreamState(snap.Answer, snap.Reasoning, snap.Images)
	}

	var cmds []tea.Cmd
	if snap.Final {
		cmds = append(cmds, m.finishTurn())
		if snap.Err != nil {
			cmds = append(cmds, m.setStatus("Generation failed: "+snap.Err.Error(), true))
		}
	}

	m.refreshViewport()
	cmds = append(cmds, m.waitForStream())
	return m, tea.Batch(cmds...)
}

// =============================================================================
// EXPORT ACTIONS
// =============================================================================

// exportMarkdown writes the conversation to a timestamped markdown file
// in the working directory.
func (m Model) exportMarkdown() tea.Cmd {
	conv := m.manager.Conversation()
	if conv.IsEmpty() {
		return m.setStatus("Nothing to export", true)
	}

	snapshot := conv.Clone()
	include := m.showReasoning
	return func() tea.Msg {
		opts := export.DefaultOptions()
		opts.IncludeReasoning = include
		path, err := export.ExportToFile(snapshot, export.NewMarkdownExporter(opts), opts)
		return ExportedMsg{Path: path, Err: err}
	}
}

// downloadLastReply writes the latest completed assistant reply to a
// tracked temp file.
func (m Model) downloadLastReply() tea.Cmd {
	snapshot := m.manager.Conversation().Clone()
	registry := m.tmp
	return func() tea.Msg {
		path, err := export.DownloadLastReply(snapshot, registry)
		return ExportedMsg{Path: path, Err: err}
	}
}

// saveResponseImages decodes inline images from the latest reply into
// tracked temp files.
func (m Model) saveResponseImages() tea.Cmd {
	snapshot := m.manager.Conversation().Clone()
	registry := m.tmp
	return func() tea.Msg {
		paths, err := export.SaveResponseImages(snapshot, registry)
		if err != nil {
			return ExportedMsg{Err: err}
		}
		if len(paths) == 0 {
			return ExportedMsg{Err: fmt.Errorf("latest reply has no images")}
		}
		return ExportedMsg{Path: strings.Join(paths, ", ")}
	}
}
