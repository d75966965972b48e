// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jeranaias/orstudio/internal/model"
	"github.com/jeranaias/orstudio/internal/openrouter"
	"github.com/jeranaias/orstudio/internal/tempfiles"
)

func sampleConversation() *model.Conversation {
	conv := model.NewConversationWithModel("x-ai/grok-4-fast:free")
	conv.AddUserMessage("What is a goroutine?")
	asst := conv.AddAssistantMessage()
	asst.ApplyStreamState("A lightweight thread managed by the Go runtime.", "User asks about concurrency.", nil)
	conv.FinalizeLast(nil)
	return conv
}

func TestMarkdownExport(t *testing.T) {
	data, err := NewMarkdownExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	out := string(data)
	for _, want := range []string{
		"model: x-ai/grok-4-fast:free",
		"### [User]",
		"### [Assistant]",
		"What is a goroutine?",
		"A lightweight thread managed by the Go runtime.",
		"<details><summary>Reasoning</summary>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown export missing %q", want)
		}
	}
}

func TestMarkdownExportWithoutReasoning(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeReasoning = false

	data, err := NewMarkdownExporter(opts).Export(sampleConversation())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Reasoning") {
		t.Error("reasoning trace exported despite IncludeReasoning=false")
	}
}

func TestMarkdownExportEmptyConversation(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(model.NewConversation())
	if err == nil {
		t.Error("expected error for empty conversation")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	conv := sampleConversation()
	data, err := NewJSONExporter().Export(conv)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	var decoded model.Conversation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.ID != conv.ID || decoded.MessageCount() != conv.MessageCount() {
		t.Errorf("round trip lost data: %+v", decoded.GetMeta())
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportToFile(sampleConversation(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile() error: %v", err)
	}
	if !strings.HasSuffix(path, ".md") {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

func TestDownloadLastReply(t *testing.T) {
	reg := tempfiles.NewRegistry()
	t.Cleanup(func() { _ = reg.CleanupAll() })

	path, err := DownloadLastReply(sampleConversation(), reg)
	if err != nil {
		t.Fatalf("DownloadLastReply() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "A lightweight thread managed by the Go runtime." {
		t.Errorf("downloaded content = %q", data)
	}
}

func TestDownloadLastReplyNoAssistant(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("hello?")

	_, err := DownloadLastReply(conv, tempfiles.NewRegistry())
	if !errors.Is(err, ErrNoReply) {
		t.Errorf("error = %v, want ErrNoReply", err)
	}
}

func TestDownloadLastReplySkipsStreaming(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("hello")
	conv.AddAssistantMessage() // still streaming

	_, err := DownloadLastReply(conv, tempfiles.NewRegistry())
	if !errors.Is(err, ErrNoReply) {
		t.Errorf("error = %v, want ErrNoReply for in-flight reply", err)
	}
}

func TestSaveResponseImages(t *testing.T) {
	reg := tempfiles.NewRegistry()
	t.Cleanup(func() { _ = reg.CleanupAll() })

	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	conv := model.NewConversation()
	conv.AddUserMessage("draw a gopher")
	asst := conv.AddAssistantMessage()
	asst.ApplyStreamState("Here you go.", "", []openrouter.ResponseImage{
		{Type: "image_url", ImageURL: openrouter.ImageURL{URL: url}},
	})
	conv.FinalizeLast(nil)

	paths, err := SaveResponseImages(conv, reg)
	if err != nil {
		t.Fatalf("SaveResponseImages() error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(paths))
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Error("decoded image bytes do not match")
	}
}
