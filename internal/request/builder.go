// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/orstudio/internal/openrouter"
)

// =============================================================================
// PARAMETERS
// =============================================================================

// Effort is the requested reasoning effort level.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// IsValid reports whether the effort level is one of the known values.
func (e Effort) IsValid() bool {
	switch e {
	case EffortLow, EffortMedium, EffortHigh:
		return true
	}
	return false
}

// Mode selects the call shape of the built request.
type Mode int

const (
	// ModeChat streams the reply incrementally.
	ModeChat Mode = iota
	// ModeAnalysis issues a single blocking call.
	ModeAnalysis
)

// Parameter bounds enforced before any network call.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 100
	MaxMaxTokens   = 65535
)

// UI defaults.
const (
	DefaultTemperature = 1.0
	DefaultMaxTokens   = 2048
	DefaultTopP        = 1.0
)

// Params holds the user-set generation parameters for one turn.
type Params struct {
	Temperature  float64
	MaxTokens    int
	Effort       Effort
	SystemPrompt string

	// Attachment is the raw image attached to the latest user turn, if any.
	Attachment []byte

	// GenerateImage asks the model to include an image in its reply.
	// Only attached for models whose profile supports image output.
	GenerateImage bool
}

// DefaultParams returns the UI default parameters.
func DefaultParams() Params {
	return Params{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Effort:      EffortMedium,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoCredential indicates no API key is available. Detected before
// building so the call is never attempted.
var ErrNoCredential = errors.New("no OpenRouter credential available")

// ValidationError reports an out-of-range or missing field, detected
// before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder constructs chat-completion requests. A Builder is immutable
// after construction and safe for concurrent use.
type Builder struct {
	configured bool
	caps       []Capability
}

// NewBuilder creates a request builder. configured reports whether a
// credential is available; when false every Build fails with
// ErrNoCredential.
func NewBuilder(configured bool) *Builder {
	return &Builder{
		configured: configured,
		caps:       DefaultCapabilities(),
	}
}

// Build produces a request descriptor for the given conversation
// history, model, and parameters. The history must be non-empty and end
// in a user turn. Build has no side effects and identical inputs yield
// structurally equal descriptors.
func (b *Builder) Build(history []openrouter.ChatMessage, modelID string, params Params, mode Mode) (*openrouter.ChatRequest, error) {
	if !b.configured {
		return nil, ErrNoCredential
	}
	if err := validate(history, modelID, params); err != nil {
		return nil, err
	}

	messages := make([]openrouter.ChatMessage, 0, len(history)+1)
	if prompt := strings.TrimSpace(params.SystemPrompt); prompt != "" {
		messages = append(messages, openrouter.NewSystemMessage(prompt))
	}
	messages = append(messages, history...)

	if params.Attachment != nil {
		last := len(messages) - 1
		restructured, err := attachImage(messages[last], params.Attachment)
		if err != nil {
			return nil, err
		}
		messages[last] = restructured
	}

	req := &openrouter.ChatRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: params.Temperature,
		TopP:        DefaultTopP,
		MaxTokens:   params.MaxTokens,
		Stream:      mode == ModeChat,
	}

	// First matching capability decides the optional reasoning fields.
	for _, cap := range b.caps {
		if cap.Match(modelID) {
			cap.Apply(req, params.Effort)
			break
		}
	}

	// Image output is requested only for models known to support it;
	// for everything else no field is attached and any upstream
	// rejection surfaces as an ordinary API error.
	if params.GenerateImage && params.Attachment == nil && ProfileFor(modelID).SupportsImageOutput {
		req.Modalities = []string{"image", "text"}
	}

	return req, nil
}

// validate checks inputs before any network call is attempted.
func validate(history []openrouter.ChatMessage, modelID string, params Params) error {
	if modelID == "" {
		return &ValidationError{Field: "model", Message: "must not be empty"}
	}
	if len(history) == 0 {
		return &ValidationError{Field: "history", Message: "must not be empty"}
	}
	if last := history[len(history)-1]; last.Role != "user" {
		return &ValidationError{Field: "history", Message: "must end in a user turn"}
	}
	if params.Temperature < MinTemperature || params.Temperature > MaxTemperature {
		return &ValidationError{
			Field:   "temperature",
			Message: fmt.Sprintf("must be in [%.1f, %.1f], got %g", MinTemperature, MaxTemperature, params.Temperature),
		}
	}
	if params.MaxTokens < MinMaxTokens || params.MaxTokens > MaxMaxTokens {
		return &ValidationError{
			Field:   "max_tokens",
			Message: fmt.Sprintf("must be in [%d, %d], got %d", MinMaxTokens, MaxMaxTokens, params.MaxTokens),
		}
	}
	if !params.Effort.IsValid() {
		return &ValidationError{
			Field:   "effort",
			Message: fmt.Sprintf("must be low, medium, or high, got %q", params.Effort),
		}
	}
	return nil
}

// attachImage restructures a user turn's content into an ordered part
// list: a text part followed by an inline image part. An empty prompt
// falls back to DefaultImagePrompt.
func attachImage(msg openrouter.ChatMessage, imageData []byte) (openrouter.ChatMessage, error) {
	prompt := strings.TrimSpace(msg.Content.PlainText())
	if prompt == "" {
		prompt = DefaultImagePrompt
	}

	dataURL, err := EncodeJPEGDataURL(imageData)
	if err != nil {
		return openrouter.ChatMessage{}, err
	}

	return openrouter.NewMultimodalUserMessage(
		openrouter.TextPart(prompt),
		openrouter.ImagePart(dataURL),
	), nil
}
