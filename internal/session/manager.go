// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the live chat session: the active conversation,
// the single-in-flight generation gate, and dirty tracking for
// auto-save.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/orstudio/internal/model"
)

// ErrGenerationInFlight is returned when a new turn is requested while
// a previous one is still streaming. One generation at a time: the UI
// offers stop, not queueing.
var ErrGenerationInFlight = errors.New("a generation is already in flight")

// DefaultAutoSaveInterval is how often a dirty session is persisted.
const DefaultAutoSaveInterval = 30 * time.Second

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks the live session state. Safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	sessionID string
	startTime time.Time
	conv      *model.Conversation

	// Generation gate
	generating bool
	cancel     context.CancelFunc

	// Auto-save tracking
	autoSaveInterval time.Duration
	lastAutoSave     time.Time
	isDirty          bool
}

// NewManager creates a session manager around a conversation.
func NewManager(conv *model.Conversation) *Manager {
	now := time.Now()
	return &Manager{
		sessionID:        "sess_" + uuid.NewString(),
		startTime:        now,
		conv:             conv,
		autoSaveInterval: DefaultAutoSaveInterval,
		lastAutoSave:     now,
	}
}

// SessionID returns the session identifier.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Conversation returns the active conversation.
func (m *Manager) Conversation() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conv
}

// Duration returns how long the session has been active.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.startTime)
}

// =============================================================================
// GENERATION GATE
// =============================================================================

// BeginGeneration claims the generation slot and returns a context the
// streaming turn should run under. Fails with ErrGenerationInFlight if
// a turn is already running; callers surface that instead of queueing.
func (m *Manager) BeginGeneration(parent context.Context) (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generating {
		return nil, ErrGenerationInFlight
	}

	ctx, cancel := context.WithCancel(parent)
	m.generating = true
	m.cancel = cancel
	return ctx, nil
}

// EndGeneration releases the generation slot. Idempotent.
func (m *Manager) EndGeneration() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.generating = false
}

// StopGeneration cancels the in-flight turn, if any. The slot stays
// claimed until the turn observes the cancellation and calls
// EndGeneration, so a stop cannot race a new send.
func (m *Manager) StopGeneration() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
}

// IsGenerating reports whether a turn is in flight.
func (m *Manager) IsGenerating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generating
}

// =============================================================================
// DIRTY TRACKING
// =============================================================================

// MarkDirty indicates the session has unsaved changes.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
}

// MarkClean indicates the session has been saved.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = false
	m.lastAutoSave = time.Now()
}

// IsDirty returns whether the session has unsaved changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty
}

// ShouldAutoSave returns true if auto-save should trigger.
func (m *Manager) ShouldAutoSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty && time.Since(m.lastAutoSave) >= m.autoSaveInterval
}

// SetAutoSaveInterval updates the auto-save interval.
func (m *Manager) SetAutoSaveInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoSaveInterval = d
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// Reset replaces the conversation with a fresh one, preserving the
// model selection and system prompt. A stop is issued first so no
// in-flight turn keeps writing into the discarded history.
func (m *Manager) Reset() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}

	fresh := model.NewConversationWithModel(m.conv.Model)
	fresh.SystemPrompt = m.conv.SystemPrompt
	m.conv = fresh
	m.isDirty = true
	return fresh
}

// Replace swaps in a different conversation (e.g. one loaded from
// storage). Fails if a generation is in flight.
func (m *Manager) Replace(conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generating {
		return ErrGenerationInFlight
	}
	m.conv = conv
	m.isDirty = false
	return nil
}
