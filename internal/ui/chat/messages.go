// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/orstudio/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamSnapshotMsg delivers one aggregator snapshot to the UI loop.
// Snapshots are whole-state; the streaming message is replaced, not
// appended to.
type StreamSnapshotMsg struct {
	MessageID string
	Snapshot  stream.Snapshot
}

// StreamClosedMsg signals that the snapshot channel has drained and the
// streaming pipeline for the turn is fully wound down.
type StreamClosedMsg struct {
	MessageID string
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusMsg sets a transient status line message.
type StatusMsg struct {
	Text  string
	IsErr bool
}

// StatusExpiredMsg clears a transient status message after its timeout.
type StatusExpiredMsg struct {
	SetAt time.Time
}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// AutoSaveTickMsg fires the periodic auto-save check.
type AutoSaveTickMsg struct{}

// SavedMsg reports the outcome of a conversation save.
type SavedMsg struct {
	ID  string
	Err error
}

// ExportedMsg reports the outcome of an export or download.
type ExportedMsg struct {
	Path string
	Err  error
}

// =============================================================================
// CONFIG RELOAD MESSAGES
// =============================================================================

// CatalogReloadedMsg delivers a reloaded model list after the models
// file changed on disk.
type CatalogReloadedMsg struct {
	IDs []string
}

// SystemPromptReloadedMsg delivers a reloaded system prompt after the
// prompt file changed on disk.
type SystemPromptReloadedMsg struct {
	Prompt string
}
