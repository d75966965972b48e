// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/orstudio/internal/export"
	"github.com/jeranaias/orstudio/internal/request"
)

// maxAttachmentSize caps image attachments read from disk (20MB raw;
// the builder re-encodes to JPEG before sending).
const maxAttachmentSize = 20 * 1024 * 1024

// helpText lists the slash commands shown by /help. Single line; the
// status bar has one row.
const helpText = "/model /models /temp /max /effort /attach /image /images " +
	"/export [json] /download /save /load /new /clear /quit"

// =============================================================================
// SLASH COMMAND DISPATCH
// =============================================================================

// handleCommand parses and executes a slash command.
func (m Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/help":
		return m, m.setStatus(helpText, false)

	case "/quit", "/exit":
		m.quitting = true
		m.manager.StopGeneration()
		return m, tea.Quit

	case "/clear":
		if m.state == StateStreaming {
			return m, m.setStatus("Stop the reply before clearing", true)
		}
		m.manager.Conversation().ClearHistory()
		m.manager.MarkDirty()
		m.refreshViewport()
		return m, m.setStatus("Conversation cleared", false)

	case "/new":
		if m.state == StateStreaming {
			return m, m.setStatus("Stop the reply before starting over", true)
		}
		m.manager.Reset()
		m.refreshViewport()
		return m, m.setStatus("New conversation", false)

	case "/model":
		return m.commandModel(args)

	case "/models":
		return m, m.setStatus("Models: "+strings.Join(m.catalog.IDs(), ", "), false)

	case "/temp", "/temperature":
		return m.commandTemperature(args)

	case "/max", "/maxtokens":
		return m.commandMaxTokens(args)

	case "/effort":
		return m.commandEffort(args)

	case "/attach":
		return m.commandAttach(args)

	case "/image":
		m.generateImage = !m.generateImage
		if m.generateImage {
			return m, m.setStatus("Next reply will request an image", false)
		}
		return m, m.setStatus("Image output off", false)

	case "/images":
		return m, m.saveResponseImages()

	case "/export":
		if len(args) > 0 && strings.EqualFold(args[0], "json") {
			return m, m.exportJSON()
		}
		return m, m.exportMarkdown()

	case "/download":
		return m, m.downloadLastReply()

	case "/save":
		if m.store == nil {
			return m, m.setStatus("Persistence is disabled", true)
		}
		return m, m.saveConversation()

	case "/load":
		return m.commandLoad()
	}

	return m, m.setStatus("Unknown command "+cmd+" (/help lists commands)", true)
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func (m Model) commandModel(args []string) (tea.Model, tea.Cmd) {
	conv := m.manager.Conversation()
	if len(args) == 0 {
		return m, m.setStatus("Model: "+conv.Model, false)
	}
	if m.state == StateStreaming {
		return m, m.setStatus("Stop the reply before switching models", true)
	}
	conv.Model = args[0]
	return m, m.setStatus("Model: "+conv.Model, false)
}

func (m Model) commandTemperature(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, m.setStatus(fmt.Sprintf("Temperature: %.1f", m.params.Temperature), false)
	}
	t, err := strconv.ParseFloat(args[0], 64)
	if err != nil || t < request.MinTemperature || t > request.MaxTemperature {
		return m, m.setStatus(fmt.Sprintf("Temperature must be %.1f-%.1f",
			request.MinTemperature, request.MaxTemperature), true)
	}
	m.params.Temperature = t
	return m, m.setStatus(fmt.Sprintf("Temperature: %.1f", t), false)
}

func (m Model) commandMaxTokens(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, m.setStatus(fmt.Sprintf("Max tokens: %d", m.params.MaxTokens), false)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < request.MinMaxTokens || n > request.MaxMaxTokens {
		return m, m.setStatus(fmt.Sprintf("Max tokens must be %d-%d",
			request.MinMaxTokens, request.MaxMaxTokens), true)
	}
	m.params.MaxTokens = n
	return m, m.setStatus(fmt.Sprintf("Max tokens: %d", n), false)
}

func (m Model) commandEffort(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, m.setStatus("Effort: "+string(m.params.Effort), false)
	}
	effort := request.Effort(strings.ToLower(args[0]))
	if !effort.IsValid() {
		return m, m.setStatus("Effort must be low, medium, or high", true)
	}
	m.params.Effort = effort
	return m, m.setStatus("Effort: "+string(effort), false)
}

func (m Model) commandAttach(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, m.setStatus("Usage: /attach <image path>", true)
	}

	path := strings.Join(args, " ")
	info, err := os.Stat(path)
	if err != nil {
		return m, m.setStatus("Cannot read "+path, true)
	}
	if info.Size() > maxAttachmentSize {
		return m, m.setStatus("Image too large (max 20MB)", true)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return m, m.setStatus("Cannot read "+path, true)
	}

	m.attachment = data
	m.attachmentName = filepath.Base(path)
	return m, m.setStatus("Attached "+m.attachmentName+" to the next message", false)
}

func (m Model) commandLoad() (tea.Model, tea.Cmd) {
	if m.store == nil {
		return m, m.setStatus("Persistence is disabled", true)
	}

	conv, err := m.store.LoadLatest()
	if err != nil {
		return m, m.setStatus("Nothing to load: "+err.Error(), true)
	}
	if err := m.manager.Replace(conv); err != nil {
		return m, m.setStatus(err.Error(), true)
	}
	if conv.Model == "" {
		conv.Model = m.catalog.Default()
	}
	m.refreshViewport()
	return m, m.setStatus("Loaded "+conv.GetTitle(), false)
}

// exportJSON writes the conversation to a timestamped JSON file.
func (m Model) exportJSON() tea.Cmd {
	conv := m.manager.Conversation()
	if conv.IsEmpty() {
		return m.setStatus("Nothing to export", true)
	}

	snapshot := conv.Clone()
	return func() tea.Msg {
		opts := export.DefaultOptions()
		path, err := export.ExportToFile(snapshot, export.NewJSONExporter(), opts)
		return ExportedMsg{Path: path, Err: err}
	}
}
