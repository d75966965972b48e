// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bufio"
	"os"
	"strings"
)

// =============================================================================
// MODEL CATALOG
// =============================================================================

// DefaultCatalog is the built-in model list used when no models file
// exists or the file is empty. The first entry is the default selection.
var DefaultCatalog = []string{
	"x-ai/grok-4-fast:free",
	"openai/gpt-oss-120b:free",
	"google/gemini-2.0-flash-exp:free",
	"meta-llama/llama-3.1-405b-instruct:free",
	"qwen/qwen3-235b-a22b:free",
}

// Catalog is an ordered list of selectable OpenRouter model identifiers.
// Order is meaningful: the first entry is the default selection.
type Catalog struct {
	ids []string
}

// NewCatalog creates a catalog from an ordered identifier list. Empty
// entries are dropped; an empty result falls back to DefaultCatalog.
func NewCatalog(ids []string) *Catalog {
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, DefaultCatalog...)
	}
	return &Catalog{ids: kept}
}

// LoadCatalog reads a models file: one model identifier per line, blank
// lines and surrounding whitespace ignored. A missing or empty file
// yields the built-in catalog rather than an error, so a fresh install
// works without any configuration.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewCatalog(nil), nil
		}
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ids = append(ids, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewCatalog(ids), nil
}

// Default returns the default model identifier (the first entry).
func (c *Catalog) Default() string {
	return c.ids[0]
}

// IDs returns the ordered identifier list.
func (c *Catalog) IDs() []string {
	return c.ids
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Contains reports whether the identifier is in the catalog.
func (c *Catalog) Contains(id string) bool {
	for _, have := range c.ids {
		if have == id {
			return true
		}
	}
	return false
}

// IndexOf returns the position of the identifier, or -1 if absent.
func (c *Catalog) IndexOf(id string) int {
	for i, have := range c.ids {
		if have == id {
			return i
		}
	}
	return -1
}

// Next returns the identifier after the given one, wrapping around.
// Unknown identifiers yield the default. Used for cycling the model
// selection in the UI.
func (c *Catalog) Next(id string) string {
	i := c.IndexOf(id)
	if i < 0 {
		return c.Default()
	}
	return c.ids[(i+1)%len(c.ids)]
}

// Prev returns the identifier before the given one, wrapping around.
func (c *Catalog) Prev(id string) string {
	i := c.IndexOf(id)
	if i < 0 {
		return c.Default()
	}
	return c.ids[(i-1+len(c.ids))%len(c.ids)]
}
