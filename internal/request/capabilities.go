// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package request

import (
	"strings"

	"github.com/jeranaias/orstudio/internal/openrouter"
)

// =============================================================================
// MODEL PROFILES
// =============================================================================

// Profile describes the optional-field capabilities derived from a
// model identifier. Derivation is a substring lookup, not a registry:
// the upstream catalog churns too fast for an exhaustive list.
type Profile struct {
	ID string

	// SupportsReasoningEffort is true for OpenAI-style reasoning models
	// that take reasoning.effort.
	SupportsReasoningEffort bool

	// SupportsReasoningToggle is true for the Grok fast-reasoning family
	// that takes reasoning.enabled.
	SupportsReasoningToggle bool

	// SupportsImageOutput is true for models that can return inline
	// images when asked via the modalities field.
	SupportsImageOutput bool
}

// ProfileFor derives the capability profile for a model identifier.
func ProfileFor(modelID string) Profile {
	return Profile{
		ID:                      modelID,
		SupportsReasoningEffort: matchesAny(modelID, openAIReasoningFamily),
		SupportsReasoningToggle: matchesAny(modelID, grokFastFamily),
		SupportsImageOutput:     matchesAny(modelID, imageOutputFamily),
	}
}

// Known family substrings, matched in the order listed.
var (
	openAIReasoningFamily = []string{"openai/gpt-oss", "openai/gpt-5"}
	grokFastFamily        = []string{"x-ai/grok-4-fast"}
	imageOutputFamily     = []string{"image"}
)

func matchesAny(modelID string, substrings []string) bool {
	for _, s := range substrings {
		if strings.Contains(modelID, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// CAPABILITY TABLE
// =============================================================================

// Capability pairs a model-identifier predicate with the optional
// request fields it attaches. The builder evaluates the table in order
// and applies only the first match, so exact provider prefixes must
// come before looser patterns.
type Capability struct {
	Name  string
	Match func(modelID string) bool
	Apply func(req *openrouter.ChatRequest, effort Effort)
}

// DefaultCapabilities returns the reasoning-control dispatch table.
//
// Models outside every family get no reasoning field at all; upstream
// is free to ignore or reject what we never send.
func DefaultCapabilities() []Capability {
	return []Capability{
		{
			// OpenAI reasoning models take a graded effort level.
			Name:  "openai-reasoning-effort",
			Match: func(id string) bool { return matchesAny(id, openAIReasoningFamily) },
			Apply: func(req *openrouter.ChatRequest, effort Effort) {
				req.Reasoning = &openrouter.ReasoningOptions{Effort: string(effort)}
			},
		},
		{
			// The Grok fast family only has an on/off switch; medium or
			// high effort is read as a request to turn it on.
			Name:  "grok-reasoning-toggle",
			Match: func(id string) bool { return matchesAny(id, grokFastFamily) },
			Apply: func(req *openrouter.ChatRequest, effort Effort) {
				if effort == EffortMedium || effort == EffortHigh {
					req.Reasoning = &openrouter.ReasoningOptions{Enabled: true}
				}
			},
		},
	}
}
