// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides SQLite-backed conversation persistence.
//
// Conversations are stored as a metadata row plus a JSON message blob.
// The blob reuses the model package's json tags, so schema churn in the
// message shape never needs a SQL migration.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/orstudio/internal/model"
)

// DefaultMaxConversations limits stored conversations; the oldest are
// evicted past this.
const DefaultMaxConversations = 100

// ErrConversationNotFound is returned when a conversation doesn't exist.
var ErrConversationNotFound = errors.New("conversation not found")

// schema is the conversation store schema, applied idempotently on open.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	model         TEXT NOT NULL,
	system_prompt TEXT NOT NULL DEFAULT '',
	tokens_used   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	messages      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated
	ON conversations(updated_at DESC);
`

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// Store handles conversation persistence.
type Store struct {
	db *sql.DB

	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int
}

// Open opens (creating if needed) the conversation database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{
		db:               db,
		MaxConversations: DefaultMaxConversations,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a conversation, inserting or replacing by ID, and
// returns the ID. Empty conversations are persisted too; a cleared
// session is a valid state to restore.
func (s *Store) Save(conv *model.Conversation) (string, error) {
	if conv == nil {
		return "", errors.New("conversation is nil")
	}

	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return "", fmt.Errorf("failed to marshal messages: %w", err)
	}

	now := time.Now()
	createdAt := conv.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.Exec(`
		INSERT INTO conversations (id, title, model, system_prompt, tokens_used, created_at, updated_at, messages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			model = excluded.model,
			system_prompt = excluded.system_prompt,
			tokens_used = excluded.tokens_used,
			updated_at = excluded.updated_at,
			messages = excluded.messages`,
		conv.ID, conv.GetTitle(), conv.Model, conv.SystemPrompt,
		conv.TokensUsed, createdAt, now, string(messages))
	if err != nil {
		return "", fmt.Errorf("failed to save conversation: %w", err)
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}

	return conv.ID, nil
}

// enforceLimit evicts the oldest conversations past MaxConversations.
func (s *Store) enforceLimit() {
	// Best effort; eviction failure never blocks a save.
	_, _ = s.db.Exec(`
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, s.MaxConversations)
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID.
func (s *Store) Load(id string) (*model.Conversation, error) {
	row := s.db.QueryRow(`
		SELECT id, title, model, system_prompt, tokens_used, created_at, updated_at, messages
		FROM conversations WHERE id = ?`, id)

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// LoadLatest retrieves the most recently updated conversation.
func (s *Store) LoadLatest() (*model.Conversation, error) {
	row := s.db.QueryRow(`
		SELECT id, title, model, system_prompt, tokens_used, created_at, updated_at, messages
		FROM conversations ORDER BY updated_at DESC LIMIT 1`)

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// scanConversation reads one conversation row.
func scanConversation(row *sql.Row) (*model.Conversation, error) {
	var conv model.Conversation
	var messages string

	err := row.Scan(&conv.ID, &conv.Title, &conv.Model, &conv.SystemPrompt,
		&conv.TokensUsed, &conv.CreatedAt, &conv.UpdatedAt, &messages)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	if conv.Messages == nil {
		conv.Messages = make([]*model.Message, 0)
	}
	return &conv, nil
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns metadata for all saved conversations, most recent first.
func (s *Store) List() ([]model.ConversationMeta, error) {
	rows, err := s.db.Query(`
		SELECT id, title, model, created_at, updated_at, messages
		FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []model.ConversationMeta
	for rows.Next() {
		var meta model.ConversationMeta
		var messages string
		if err := rows.Scan(&meta.ID, &meta.Title, &meta.Model,
			&meta.CreatedAt, &meta.UpdatedAt, &messages); err != nil {
			return nil, err
		}

		var msgs []*model.Message
		if err := json.Unmarshal([]byte(messages), &msgs); err == nil {
			meta.MessageCount = len(msgs)
			meta.Preview = firstUserPreview(msgs)
		}
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Search finds conversations whose title or message content contains
// the query (case-insensitive).
func (s *Store) Search(query string) ([]model.ConversationMeta, error) {
	if query == "" {
		return s.List()
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []model.ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
			continue
		}

		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// firstUserPreview returns a truncated preview of the first user message.
func firstUserPreview(msgs []*model.Message) string {
	for _, msg := range msgs {
		if msg.Role == model.RoleUser && msg.Content != "" {
			return msg.Preview(80)
		}
	}
	return ""
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Clear removes all saved conversations.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM conversations`)
	return err
}
