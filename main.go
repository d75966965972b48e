// orstudio - a terminal studio for OpenRouter chat models.
//
// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/orstudio/internal/cli"
	"github.com/jeranaias/orstudio/internal/config"
	"github.com/jeranaias/orstudio/internal/model"
	"github.com/jeranaias/orstudio/internal/openrouter"
	"github.com/jeranaias/orstudio/internal/storage"
	"github.com/jeranaias/orstudio/internal/tempfiles"
	"github.com/jeranaias/orstudio/internal/ui/chat"
)

// Version information (set at build time).
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const usage = `orstudio - chat with OpenRouter models from the terminal

Usage:
  orstudio                       start the chat TUI
  orstudio ask [question]        one-shot question (or interactive prompt)
  orstudio analyze <image>       describe or question an image
  orstudio version               print version information

Ask flags:
  -m, --model ID    model to use (overrides config)
  -f, --file PATH   include a file's contents as context
  --reasoning       print the reasoning trace after the answer

Analyze flags:
  -m, --model ID    model to use (overrides config)
  -p, --prompt TEXT question about the image

Set OPENROUTER_API_KEY to authenticate. Config lives in ~/.orstudio/.`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Temp files (downloads, saved images) are cleaned up on exit.
	registry := tempfiles.NewRegistry()
	defer func() {
		_ = registry.CleanupAll()
	}()

	args := os.Args[1:]
	if len(args) == 0 {
		return runTUI(registry)
	}

	switch args[0] {
	case "ask":
		return runAsk(args[1:])
	case "analyze":
		return runAnalyze(args[1:])
	case "version", "--version", "-v":
		fmt.Printf("orstudio %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return nil
	case "help", "--help", "-h":
		fmt.Println(usage)
		return nil
	default:
		// Bare arguments are an implicit ask, so `orstudio "question"`
		// just works.
		return runAsk(args)
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func runAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	modelID := fs.String("model", "", "model to use")
	fs.StringVar(modelID, "m", "", "model to use (shorthand)")
	file := fs.String("file", "", "include a file's contents as context")
	fs.StringVar(file, "f", "", "include a file (shorthand)")
	reasoning := fs.Bool("reasoning", false, "print the reasoning trace")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Global()
	return cli.HandleAsk(context.Background(), cfg, cli.AskOptions{
		Question:      joinArgs(fs.Args()),
		Model:         *modelID,
		File:          *file,
		ShowReasoning: *reasoning,
	})
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	modelID := fs.String("model", "", "model to use")
	fs.StringVar(modelID, "m", "", "model to use (shorthand)")
	prompt := fs.String("prompt", "", "question about the image")
	fs.StringVar(prompt, "p", "", "question about the image (shorthand)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return fmt.Errorf("analyze requires an image path")
	}

	cfg := config.Global()
	return cli.HandleAnalyze(context.Background(), cfg, cli.AnalyzeOptions{
		ImagePath: fs.Arg(0),
		Prompt:    *prompt,
		Model:     *modelID,
	})
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(registry *tempfiles.Registry) error {
	if !cli.IsTTY() {
		return fmt.Errorf("the chat TUI needs a terminal; try `orstudio ask` for piped input")
	}

	cfg := config.Global()

	catalog, err := model.LoadCatalog(cfg.Files.Models)
	if err != nil {
		return fmt.Errorf("failed to load model list: %w", err)
	}
	if cfg.DefaultModel != "" && !catalog.Contains(cfg.DefaultModel) {
		// A configured model outside the list is still usable; put it first.
		catalog = model.NewCatalog(append([]string{cfg.DefaultModel}, catalog.IDs()...))
	}

	prompt, err := config.LoadSystemPrompt(cfg.Files.SystemPrompt)
	if err != nil {
		return fmt.Errorf("failed to load system prompt: %w", err)
	}

	client := openrouter.NewClient(cfg.API.Key)
	if cfg.API.BaseURL != "" {
		client = client.WithBaseURL(cfg.API.BaseURL)
	}

	var store *storage.Store
	if cfg.Storage.Enabled {
		store, err = storage.Open(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: persistence disabled: %v\n", err)
		} else {
			defer store.Close()
		}
	}

	app := chat.New(chat.Options{
		Config:       cfg,
		Client:       client,
		Catalog:      catalog,
		Store:        store,
		Registry:     registry,
		SystemPrompt: prompt,
	})

	program := tea.NewProgram(app, tea.WithAltScreen())

	// Edits to the models list or system prompt land in the running UI
	// without a restart.
	watcher, err := newReloadWatcher(cfg, program)
	if err == nil {
		watcher.Watch()
		defer watcher.Close()
	}

	_, err = program.Run()
	return err
}

// newReloadWatcher bridges file change events into Bubble Tea messages.
func newReloadWatcher(cfg *config.Config, program *tea.Program) (*config.Watcher, error) {
	modelsPath, _ := filepath.Abs(cfg.Files.Models)
	promptPath, _ := filepath.Abs(cfg.Files.SystemPrompt)

	return config.NewWatcher(func(path string) {
		switch path {
		case modelsPath:
			catalog, err := model.LoadCatalog(path)
			if err != nil {
				return
			}
			program.Send(chat.CatalogReloadedMsg{IDs: catalog.IDs()})
		case promptPath:
			prompt, err := config.LoadSystemPrompt(path)
			if err != nil {
				return
			}
			program.Send(chat.SystemPromptReloadedMsg{Prompt: prompt})
		}
	}, cfg.Files.Models, cfg.Files.SystemPrompt)
}

// joinArgs rebuilds a question from the remaining positional arguments.
func joinArgs(args []string) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		return args[0]
	default:
		out := args[0]
		for _, a := range args[1:] {
			out += " " + a
		}
		return out
	}
}
