// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surfaces: one-shot and
// interactive "ask" mode, and blocking image "analyze" mode. Output is
// markdown-rendered when stdout is a terminal and plain when piped.
package cli
