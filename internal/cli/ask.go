// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/orstudio/internal/config"
	"github.com/jeranaias/orstudio/internal/model"
	"github.com/jeranaias/orstudio/internal/openrouter"
	"github.com/jeranaias/orstudio/internal/request"
	"github.com/jeranaias/orstudio/internal/stream"
)

// MaxFileSize caps files included with --file (50KB).
const MaxFileSize = 50 * 1024

// historyFileName is the liner history file under the config dir.
const historyFileName = "history"

// =============================================================================
// ASK OPTIONS
// =============================================================================

// AskOptions configures the ask command.
type AskOptions struct {
	// Question is the one-shot question. Empty with a TTY starts the
	// interactive prompt; empty with piped stdin reads the pipe.
	Question string

	// Model overrides the configured model.
	Model string

	// File is an optional file whose contents are appended as context.
	File string

	// ShowReasoning prints the reasoning trace to stderr after the answer.
	ShowReasoning bool
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// newClient builds an OpenRouter client from the configuration.
func newClient(cfg *config.Config) *openrouter.Client {
	client := openrouter.NewClient(cfg.API.Key)
	if cfg.API.BaseURL != "" {
		client = client.WithBaseURL(cfg.API.BaseURL)
	}
	return client
}

// resolveModel picks the model: flag, then config, then catalog default.
func resolveModel(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	if cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	catalog, err := model.LoadCatalog(cfg.Files.Models)
	if err != nil {
		return model.DefaultCatalog[0]
	}
	return catalog.Default()
}

// loadSystemPrompt reads the configured system prompt, falling back to
// the built-in default on read failure.
func loadSystemPrompt(cfg *config.Config) string {
	prompt, err := config.LoadSystemPrompt(cfg.Files.SystemPrompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errStyle.Render("Warning: "+err.Error()))
		return config.DefaultSystemPrompt
	}
	return prompt
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAsk runs the ask command: one-shot when a question is given (or
// piped), interactive otherwise.
func HandleAsk(ctx context.Context, cfg *config.Config, opts AskOptions) error {
	question := strings.TrimSpace(opts.Question)

	// Piped stdin is the question when none was given on the command line.
	if question == "" && !IsTTY() {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}

	conv := model.NewConversationWithModel(resolveModel(cfg, opts.Model))
	conv.SystemPrompt = loadSystemPrompt(cfg)

	client := newClient(cfg)
	builder := request.NewBuilder(cfg.IsConfigured())
	params := cfg.DefaultParams()

	if opts.File != "" {
		fileContext, err := readFileForContext(opts.File)
		if err != nil {
			return err
		}
		if question == "" {
			return errors.New("--file requires a question")
		}
		question += "\n" + fileContext
	}

	if question != "" {
		return askOnce(ctx, client, builder, conv, params, question, opts.ShowReasoning)
	}

	return runInteractive(ctx, client, builder, conv, params, opts.ShowReasoning)
}

// askOnce runs a single turn, streaming the answer to stdout.
func askOnce(ctx context.Context, client *openrouter.Client, builder *request.Builder,
	conv *model.Conversation, params request.Params, question string, showReasoning bool) error {

	conv.AddUserMessage(question)
	params.SystemPrompt = conv.SystemPrompt

	req, err := builder.Build(conv.ToChatMessages(), conv.Model, params, request.ModeChat)
	if err != nil {
		return err
	}

	stats := model.NewStatistics()
	final, err := streamToStdout(ctx, client, req, stats)

	asst := conv.AddAssistantMessage()
	asst.ApplyStreamState(final.Answer, final.Reasoning, final.Images)
	stats.Finalize(asst.EstimateTokens())
	conv.FinalizeLast(stats)

	if showReasoning && IsStdoutTTY() {
		fmt.Fprintf(os.Stderr, "\n%s\n%s\n",
			labelStyle.Render("Reasoning:"),
			faintStyle.Render(final.Reasoning))
	}
	if IsStdoutTTY() {
		fmt.Fprintf(os.Stderr, "%s\n", statStyle.Render(stats.Format()))
	}

	return err
}

// streamToStdout runs the streaming pipeline for one request, printing
// answer growth as it arrives, and returns the final snapshot.
func streamToStdout(ctx context.Context, client *openrouter.Client, req *openrouter.ChatRequest,
	stats *model.Statistics) (stream.Snapshot, error) {

	chunks := client.ChatStreamChan(ctx, req)
	frags := make(chan stream.Fragment, 8)
	go func() {
		defer close(frags)
		for chunk := range chunks {
			frags <- stream.FragmentFromChunk(chunk)
		}
	}()

	var last stream.Snapshot
	printed := 0
	for snap := range stream.NewAggregator().Run(ctx, frags) {
		if len(snap.Answer) > printed {
			if printed == 0 {
				stats.RecordFirstToken()
			}
			fmt.Print(snap.Answer[printed:])
			printed = len(snap.Answer)
		}
		last = snap
	}
	fmt.Println()

	return last, last.Err
}

// =============================================================================
// INTERACTIVE MODE
// =============================================================================

// runInteractive runs a multi-turn prompt loop with line editing and
// persistent history.
func runInteractive(ctx context.Context, client *openrouter.Client, builder *request.Builder,
	conv *model.Conversation, params request.Params, showReasoning bool) error {

	if !IsTTY() {
		return errors.New("no question provided and stdin is not a terminal")
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := historyPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("%s %s\n", labelStyle.Render("orstudio"),
		faintStyle.Render("interactive ask — "+conv.Model+" — /quit to exit"))

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case input == "/quit" || input == "/exit":
			return nil
		case input == "/clear":
			conv.ClearHistory()
			fmt.Println(faintStyle.Render("Conversation cleared."))
			continue
		case strings.HasPrefix(input, "/model"):
			fields := strings.Fields(input)
			if len(fields) > 1 {
				conv.Model = fields[1]
			}
			fmt.Println(faintStyle.Render("Model: " + conv.Model))
			continue
		}

		if err := askOnce(ctx, client, builder, conv, params, input, showReasoning); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", errStyle.Render("Error: "+err.Error()))
		}
	}
}

// historyPath returns the liner history file path, or "" when the
// config dir is unavailable.
func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, historyFileName)
}

// =============================================================================
// FILE CONTEXT
// =============================================================================

// readFileForContext reads a file and formats it for inclusion in a
// prompt. Files larger than MaxFileSize are rejected.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n--- File: %s ---\n", path)
	b.Write(content)
	b.WriteString("\n--- End of file ---\n")
	return b.String(), nil
}
