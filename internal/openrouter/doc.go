// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openrouter implements the client for the OpenRouter
// chat-completions API.
//
// OpenRouter fronts many hosted models behind a single OpenAI-compatible
// endpoint. This package covers the two call shapes orstudio uses: a
// blocking completion for one-shot analysis, and an SSE stream for
// interactive chat. Wire types support both plain-text messages and
// typed content parts (text + image), and stream deltas may carry a
// reasoning trace alongside the answer.
package openrouter
