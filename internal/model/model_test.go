// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessageGeneratesUniqueIDs(t *testing.T) {
	a := NewUserMessage("one")
	b := NewUserMessage("two")
	if a.ID == b.ID {
		t.Errorf("duplicate message IDs: %s", a.ID)
	}
	if !strings.HasPrefix(a.ID, "msg_") {
		t.Errorf("unexpected ID format: %s", a.ID)
	}
}

func TestApplyStreamStateReplacesContent(t *testing.T) {
	msg := NewAssistantMessage()
	msg.ApplyStreamState("partial", "thinking", nil)
	msg.ApplyStreamState("partial answer", "thinking done", nil)

	if msg.Content != "partial answer" {
		t.Errorf("content = %q, want replacement semantics", msg.Content)
	}
	if msg.Reasoning != "thinking done" {
		t.Errorf("reasoning = %q", msg.Reasoning)
	}
}

func TestApplyStreamStateIgnoredAfterFinalize(t *testing.T) {
	msg := NewAssistantMessage()
	msg.ApplyStreamState("final", "", nil)
	msg.FinalizeStream(nil)
	msg.ApplyStreamState("late delta", "", nil)

	if msg.Content != "final" {
		t.Errorf("content changed after finalize: %q", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("message still marked streaming after finalize")
	}
}

func TestFinalizeStreamSetsStatistics(t *testing.T) {
	msg := NewAssistantMessage()
	msg.ApplyStreamState("answer", "", nil)

	stats := &Statistics{
		TTFT:             200 * time.Millisecond,
		TotalDuration:    2 * time.Second,
		CompletionTokens: 100,
		TokensPerSecond:  50,
	}
	msg.FinalizeStream(stats)

	if msg.TokenCount != 100 || msg.TTFT != 200*time.Millisecond {
		t.Errorf("stats not applied: %+v", msg)
	}
	got := msg.FormatStats()
	if !strings.Contains(got, "100 tokens") || !strings.Contains(got, "TTFT 200ms") {
		t.Errorf("FormatStats() = %q", got)
	}
}

func TestMessagePreviewTruncatesRunes(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("ö", 60))
	got := msg.Preview(50)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("preview not truncated: %q", got)
	}
	if len([]rune(got)) != 50 {
		t.Errorf("preview length = %d runes, want 50", len([]rune(got)))
	}
}

func TestMessagePreviewTinyLimit(t *testing.T) {
	msg := NewUserMessage("a long enough message")
	for _, maxLen := range []int{0, 1, 2, 3} {
		if got := msg.Preview(maxLen); got != "..." {
			t.Errorf("Preview(%d) = %q, want ellipsis only", maxLen, got)
		}
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversationAddAndConvert(t *testing.T) {
	conv := NewConversationWithModel("x-ai/grok-4-fast:free")
	conv.AddUserMessage("What is Go?")
	asst := conv.AddAssistantMessage()
	asst.ApplyStreamState("A programming language.", "", nil)
	conv.FinalizeLast(nil)
	conv.AddUserMessage("Elaborate.")

	wire := conv.ToChatMessages()
	if len(wire) != 3 {
		t.Fatalf("got %d wire messages, want 3", len(wire))
	}
	if wire[0].Role != "user" || wire[1].Role != "assistant" || wire[2].Role != "user" {
		t.Errorf("role order wrong: %s, %s, %s", wire[0].Role, wire[1].Role, wire[2].Role)
	}
	if wire[1].Content.PlainText() != "A programming language." {
		t.Errorf("assistant content = %q", wire[1].Content.PlainText())
	}
}

func TestToChatMessagesSkipsStreamingPlaceholder(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage() // still streaming, empty

	wire := conv.ToChatMessages()
	if len(wire) != 1 {
		t.Errorf("got %d wire messages, want 1 (placeholder skipped)", len(wire))
	}
}

func TestToChatMessagesExcludesSystemPromptField(t *testing.T) {
	conv := NewConversation()
	conv.SystemPrompt = "You are a helpful assistant."
	conv.AddUserMessage("hi")

	// The builder prepends the prompt; the conversion must not.
	wire := conv.ToChatMessages()
	if len(wire) != 1 || wire[0].Role != "user" {
		t.Errorf("system prompt leaked into wire conversion: %+v", wire)
	}
}

func TestClearHistoryKeepsModelAndPrompt(t *testing.T) {
	conv := NewConversationWithModel("openai/gpt-oss-120b:free")
	conv.SystemPrompt = "Be terse."
	conv.AddUserMessage("hello")
	conv.ClearHistory()

	if !conv.IsEmpty() {
		t.Error("history not cleared")
	}
	if conv.Model != "openai/gpt-oss-120b:free" || conv.SystemPrompt != "Be terse." {
		t.Error("clear dropped model or system prompt")
	}
	if conv.TokensUsed != 0 {
		t.Errorf("tokens used = %d after clear", conv.TokensUsed)
	}
}

func TestConversationTitleFromFirstUserMessage(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("Explain quicksort in one paragraph")
	if conv.GetTitle() != "Explain quicksort in one paragraph" {
		t.Errorf("title = %q", conv.GetTitle())
	}
}

func TestPruneOldMessagesKeepsSystem(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(NewSystemMessage("system rule"))
	for i := 0; i <= MaxMessages; i++ {
		conv.AddUserMessage("filler")
	}

	if conv.MessageCount() != MaxMessages+1 {
		t.Errorf("count = %d, want %d", conv.MessageCount(), MaxMessages+1)
	}
	if conv.Messages[0].Role != RoleSystem {
		t.Error("system message pruned")
	}
}

func TestCloneIsDeep(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("original")

	clone := conv.Clone()
	clone.Messages[0].Content = "mutated"

	if conv.Messages[0].Content != "original" {
		t.Error("clone shares message storage with original")
	}
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestLoadCatalogMissingFileFallsBack(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join(t.TempDir(), "models.txt"))
	if err != nil {
		t.Fatalf("LoadCatalog() error: %v", err)
	}
	if cat.Default() != DefaultCatalog[0] {
		t.Errorf("default = %q, want %q", cat.Default(), DefaultCatalog[0])
	}
	if cat.Len() != len(DefaultCatalog) {
		t.Errorf("len = %d, want %d", cat.Len(), len(DefaultCatalog))
	}
}

func TestLoadCatalogReadsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.txt")
	content := "anthropic/claude-sonnet-4\n\n  openai/gpt-5-mini  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("len = %d, want 2", cat.Len())
	}
	if cat.Default() != "anthropic/claude-sonnet-4" {
		t.Errorf("default = %q, first line should win", cat.Default())
	}
	if !cat.Contains("openai/gpt-5-mini") {
		t.Error("whitespace not trimmed from entries")
	}
}

func TestLoadCatalogEmptyFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error: %v", err)
	}
	if cat.Default() != DefaultCatalog[0] {
		t.Errorf("empty file did not fall back, default = %q", cat.Default())
	}
}

func TestCatalogCycling(t *testing.T) {
	cat := NewCatalog([]string{"a", "b", "c"})
	if got := cat.Next("a"); got != "b" {
		t.Errorf("Next(a) = %q", got)
	}
	if got := cat.Next("c"); got != "a" {
		t.Errorf("Next(c) = %q, want wraparound", got)
	}
	if got := cat.Prev("a"); got != "c" {
		t.Errorf("Prev(a) = %q, want wraparound", got)
	}
	if got := cat.Next("unknown"); got != "a" {
		t.Errorf("Next(unknown) = %q, want default", got)
	}
}
