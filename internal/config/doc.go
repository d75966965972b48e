// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation. Alongside the main config
// file, two plain-text files configure the chat surface: a models file (one
// OpenRouter identifier per line, first line is the default) and a system
// prompt file. Both have built-in fallbacks so a fresh install works with
// nothing but OPENROUTER_API_KEY set.
//
// Configuration file locations (in order of precedence):
//   - ~/.orstudio/config.toml
//   - ~/.orstudio/config.json
//   - Built-in defaults
package config
