// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/orstudio/internal/config"
	"github.com/jeranaias/orstudio/internal/openrouter"
	"github.com/jeranaias/orstudio/internal/request"
	"github.com/jeranaias/orstudio/internal/util"
)

// MaxImageSize caps analyzed images (20MB raw; re-encoded to JPEG
// before sending).
const MaxImageSize = 20 * 1024 * 1024

// =============================================================================
// ANALYZE OPTIONS
// =============================================================================

// AnalyzeOptions configures the analyze command.
type AnalyzeOptions struct {
	// ImagePath is the image to analyze. Required.
	ImagePath string

	// Prompt is the question about the image; empty uses the default
	// description prompt.
	Prompt string

	// Model overrides the configured model.
	Model string
}

// =============================================================================
// ANALYZE HANDLER
// =============================================================================

// HandleAnalyze runs the analyze command: a single blocking multimodal
// call with the image attached to the prompt. Any images the model
// returns are written next to the working directory.
func HandleAnalyze(ctx context.Context, cfg *config.Config, opts AnalyzeOptions) error {
	if opts.ImagePath == "" {
		return fmt.Errorf("analyze requires an image path")
	}

	info, err := os.Stat(opts.ImagePath)
	if err != nil {
		return fmt.Errorf("cannot access image: %w", err)
	}
	if info.Size() > MaxImageSize {
		return fmt.Errorf("image too large: %d bytes (max %d)", info.Size(), MaxImageSize)
	}

	data, err := os.ReadFile(opts.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	params := cfg.DefaultParams()
	params.SystemPrompt = loadSystemPrompt(cfg)
	params.Attachment = data

	history := []openrouter.ChatMessage{openrouter.NewUserMessage(opts.Prompt)}

	builder := request.NewBuilder(cfg.IsConfigured())
	req, err := builder.Build(history, resolveModel(cfg, opts.Model), params, request.ModeAnalysis)
	if err != nil {
		return err
	}

	if IsStdoutTTY() {
		fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("Analyzing"), opts.ImagePath)
	}

	resp, err := newClient(cfg).Chat(ctx, req)
	if err != nil {
		return err
	}

	displayResponse(resp.GetContent())

	if usage := resp.Usage; usage.TotalTokens > 0 && IsStdoutTTY() {
		fmt.Fprintf(os.Stderr, "%s\n", statStyle.Render(
			fmt.Sprintf("%d prompt + %d completion tokens", usage.PromptTokens, usage.CompletionTokens)))
	}

	return saveImages(resp.GetImages())
}

// saveImages decodes inline response images into numbered PNG files in
// the working directory.
func saveImages(images []openrouter.ResponseImage) error {
	for i, img := range images {
		data, err := request.DecodeDataURL(img.ImageURL.URL)
		if err != nil {
			return fmt.Errorf("failed to decode response image %d: %w", i+1, err)
		}

		path := fmt.Sprintf("analysis-image-%d.png", i+1)
		if err := util.AtomicWriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "%s\n", statStyle.Render("Saved "+path))
	}
	return nil
}
