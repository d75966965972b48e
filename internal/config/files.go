// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strings"
)

// DefaultSystemPrompt is used when no system prompt file exists.
const DefaultSystemPrompt = "You are a helpful assistant."

// LoadSystemPrompt reads the system prompt file and returns its trimmed
// contents. A missing file yields the built-in default rather than an
// error; any other read failure is reported.
func LoadSystemPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSystemPrompt, nil
		}
		return "", err
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return DefaultSystemPrompt, nil
	}
	return prompt, nil
}
