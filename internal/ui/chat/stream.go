// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/orstudio/internal/model"
	"github.com/jeranaias/orstudio/internal/request"
	"github.com/jeranaias/orstudio/internal/stream"
)

// =============================================================================
// STREAMING PIPELINE
// =============================================================================

// startTurn claims the generation slot, builds the request, and starts
// the streaming pipeline for one turn:
//
//	client chunks -> fragments -> aggregator snapshots -> tea messages
//
// Each stage runs in its own goroutine; everything winds down when the
// turn context is cancelled or the upstream closes.
func (m *Model) startTurn(text string) tea.Cmd {
	ctx, err := m.manager.BeginGeneration(context.Background())
	if err != nil {
		return m.setStatus("A reply is already streaming. Esc stops it.", true)
	}

	conv := m.manager.Conversation()
	userMsg := conv.AddUserMessage(text)
	if m.attachmentName != "" {
		userMsg.AttachmentName = m.attachmentName
	}

	params := m.params
	params.SystemPrompt = m.systemPrompt
	params.Attachment = m.attachment
	params.GenerateImage = m.generateImage

	req, err := m.builder.Build(conv.ToChatMessages(), conv.Model, params, request.ModeChat)
	if err != nil {
		// The turn never started; withdraw the user message so a retry
		// does not duplicate it.
		conv.RemoveMessage(userMsg.ID)
		m.manager.EndGeneration()
		return m.setStatus(err.Error(), true)
	}

	// The attachment belongs to this turn only.
	m.attachment = nil
	m.attachmentName = ""
	m.generateImage = false

	asst := conv.AddAssistantMessage()
	m.streamingID = asst.ID
	m.stats = model.NewStatistics()
	m.state = StateStreaming
	m.manager.MarkDirty()

	events := make(chan tea.Msg, 8)
	m.events = events

	msgID := asst.ID
	client, agg := m.client, m.aggregator
	go func() {
		defer close(events)

		chunks := client.ChatStreamChan(ctx, req)
		frags := make(chan stream.Fragment, 8)
		go func() {
			defer close(frags)
			for chunk := range chunks {
				frags <- stream.FragmentFromChunk(chunk)
			}
		}()

		for snap := range agg.Run(ctx, frags) {
			events <- StreamSnapshotMsg{MessageID: msgID, Snapshot: snap}
		}
	}()

	return tea.Batch(m.waitForStream(), m.spinner.Tick)
}

// waitForStream returns a command that delivers the next pipeline event.
// The Update loop re-issues it after every event until the channel
// closes.
func (m *Model) waitForStream() tea.Cmd {
	events := m.events
	id := m.streamingID
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return StreamClosedMsg{MessageID: id}
		}
		return msg
	}
}

// finishTurn finalizes the streaming message and releases the
// generation slot.
func (m *Model) finishTurn() tea.Cmd {
	conv := m.manager.Conversation()

	if m.stats != nil {
		if last := conv.GetLastMessage(); last != nil && last.ID == m.streamingID {
			m.stats.Finalize(last.EstimateTokens())
		}
	}
	conv.FinalizeLast(m.stats)

	m.manager.EndGeneration()
	m.state = StateReady
	m.stats = nil
	m.manager.MarkDirty()

	return m.saveConversation()
}

// saveConversation persists the conversation in the background. The
// clone is taken on the UI loop so the command goroutine never reads
// state the next Update may mutate.
func (m *Model) saveConversation() tea.Cmd {
	if m.store == nil {
		return nil
	}
	snapshot := m.manager.Conversation().Clone()
	store := m.store
	return func() tea.Msg {
		id, err := store.Save(snapshot)
		return SavedMsg{ID: id, Err: err}
	}
}
