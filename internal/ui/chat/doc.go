// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat TUI.
//
// The package is organized as a single Bubble Tea model split across
// files by concern:
//
//   - model.go: the Model struct, construction, and Init
//   - update.go: the Update loop and key handling
//   - view.go: rendering (header, transcript viewport, input, status bar)
//   - stream.go: the streaming pipeline bridging the OpenRouter client
//     and the snapshot aggregator into Bubble Tea messages
//   - commands.go: slash command dispatch
//   - keys.go: key bindings
//   - messages.go: Bubble Tea message types
//
// One generation runs at a time; the session manager's generation gate
// enforces that, and Esc cancels the in-flight turn while keeping the
// partial answer.
package chat
