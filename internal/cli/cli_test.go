// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/orstudio/internal/config"
	"github.com/jeranaias/orstudio/internal/model"
	"github.com/jeranaias/orstudio/internal/openrouter"
)

func TestResolveModelPrecedence(t *testing.T) {
	cfg := config.Default()
	cfg.Files.Models = filepath.Join(t.TempDir(), "missing-models.txt")

	if got := resolveModel(cfg, "override/model"); got != "override/model" {
		t.Errorf("flag override lost: %q", got)
	}

	cfg.DefaultModel = "configured/model"
	if got := resolveModel(cfg, ""); got != "configured/model" {
		t.Errorf("config default lost: %q", got)
	}

	cfg.DefaultModel = ""
	if got := resolveModel(cfg, ""); got != model.DefaultCatalog[0] {
		t.Errorf("catalog fallback = %q", got)
	}
}

func TestResolveModelFromCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.txt")
	if err := os.WriteFile(path, []byte("my/model-a\nmy/model-b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Files.Models = path
	if got := resolveModel(cfg, ""); got != "my/model-a" {
		t.Errorf("resolveModel = %q, want first catalog entry", got)
	}
}

func TestReadFileForContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("some context"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := readFileForContext(path)
	if err != nil {
		t.Fatalf("readFileForContext() error: %v", err)
	}
	if !strings.Contains(out, "some context") || !strings.Contains(out, path) {
		t.Errorf("formatted context = %q", out)
	}
}

func TestReadFileForContextMissing(t *testing.T) {
	_, err := readFileForContext("/nonexistent/file.txt")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v", err)
	}
}

func TestReadFileForContextTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	if err := os.WriteFile(path, make([]byte, MaxFileSize+1), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := readFileForContext(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadSystemPromptFallback(t *testing.T) {
	cfg := config.Default()
	cfg.Files.SystemPrompt = filepath.Join(t.TempDir(), "missing-prompt.txt")

	if got := loadSystemPrompt(cfg); got != config.DefaultSystemPrompt {
		t.Errorf("loadSystemPrompt = %q", got)
	}
}

func TestSaveImages(t *testing.T) {
	t.Chdir(t.TempDir())

	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	images := []openrouter.ResponseImage{{
		Type: "image_url",
		ImageURL: openrouter.ImageURL{
			URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload),
		},
	}}

	if err := saveImages(images); err != nil {
		t.Fatalf("saveImages() error: %v", err)
	}

	data, err := os.ReadFile("analysis-image-1.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Error("decoded image bytes do not match")
	}
}

func TestSaveImagesRejectsBadDataURL(t *testing.T) {
	images := []openrouter.ResponseImage{{
		Type:     "image_url",
		ImageURL: openrouter.ImageURL{URL: "https://example.com/not-a-data-url.png"},
	}}
	if err := saveImages(images); err == nil {
		t.Error("expected error for non-data URL")
	}
}

func TestNewClientUsesBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.API.Key = "sk-or-test"
	cfg.API.BaseURL = "http://localhost:9999/api/v1"

	client := newClient(cfg)
	if !client.IsConfigured() {
		t.Error("client should be configured with a key")
	}
}
