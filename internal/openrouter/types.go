// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// MESSAGE CONTENT
// =============================================================================

// Content part types understood by the chat-completions endpoint.
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ImageURL carries an image reference, either a remote URL or an
// inline base64 data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a multimodal message content list.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart creates an image_url content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// Content is the content of a chat message. The wire format is either a
// plain JSON string or an ordered list of typed parts; Parts takes
// precedence when non-nil.
type Content struct {
	Text  string
	Parts []ContentPart
}

// TextContent creates plain-text message content.
func TextContent(text string) Content {
	return Content{Text: text}
}

// PartsContent creates multimodal message content from an ordered part list.
func PartsContent(parts ...ContentPart) Content {
	return Content{Parts: parts}
}

// IsMultimodal returns true if the content is a typed part list.
func (c Content) IsMultimodal() bool {
	return c.Parts != nil
}

// PlainText returns the textual content: the text itself for plain
// content, or the concatenation of text parts for multimodal content.
func (c Content) PlainText() string {
	if c.Parts == nil {
		return c.Text
	}
	var out string
	for _, p := range c.Parts {
		if p.Type == PartTypeText {
			out += p.Text
		}
	}
	return out
}

// MarshalJSON emits a bare string for plain content and an array of
// typed parts for multimodal content.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts both wire shapes.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content is neither string nor part list: %w", err)
	}
	c.Text = ""
	c.Parts = parts
	return nil
}

// =============================================================================
// CHAT MESSAGES
// =============================================================================

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string  `json:"role"` // "user", "assistant", or "system"
	Content Content `json:"content"`
}

// NewUserMessage creates a new plain-text user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: TextContent(content)}
}

// NewAssistantMessage creates a new plain-text assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: TextContent(content)}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: TextContent(content)}
}

// NewMultimodalUserMessage creates a user message whose content is an
// ordered list of typed parts.
func NewMultimodalUserMessage(parts ...ContentPart) ChatMessage {
	return ChatMessage{Role: "user", Content: PartsContent(parts...)}
}

// =============================================================================
// REQUESTS
// =============================================================================

// ReasoningOptions is the optional per-model reasoning control object.
// OpenAI-style reasoning models take an effort level; the Grok fast
// family takes a boolean toggle. Only one of the two fields is ever set.
type ReasoningOptions struct {
	Effort  string `json:"effort,omitempty"`  // "low", "medium", or "high"
	Enabled bool   `json:"enabled,omitempty"` // Grok-style toggle
}

// ChatRequest represents a request to the chat completions endpoint.
// Built once per turn by the request builder and consumed exactly once.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`

	// Optional model-dependent fields. Absent fields are simply not sent;
	// upstream ignores or rejects unknown fields on its own terms.
	Reasoning  *ReasoningOptions `json:"reasoning,omitempty"`
	Modalities []string          `json:"modalities,omitempty"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// ResponseImage is an inline image returned by image-output models.
// The URL is a base64 data URL.
type ResponseImage struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

// ResponseMessage is the assistant message of a completed (non-streamed)
// response.
type ResponseMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Reasoning string          `json:"reasoning,omitempty"`
	Images    []ResponseImage `json:"images,omitempty"`
}

// Usage reports token accounting for a completed response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse represents a response from the chat completions endpoint.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ResponseMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// GetImages returns the inline images of the first choice, if any.
func (r *ChatResponse) GetImages() []ResponseImage {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Images
	}
	return nil
}

// =============================================================================
// STREAM CHUNKS
// =============================================================================

// StreamChunk represents a single chunk from the streaming response.
// Each chunk carries zero or one content delta, zero or one reasoning
// delta, and optionally inline image data.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Role      string          `json:"role,omitempty"`
			Content   string          `json:"content,omitempty"`
			Reasoning string          `json:"reasoning,omitempty"`
			Images    []ResponseImage `json:"images,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error error `json:"-"` // set by channel-based streaming on failure
}

// GetContent returns the content delta from the first choice.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// GetReasoning returns the reasoning delta from the first choice.
func (c *StreamChunk) GetReasoning() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Reasoning
	}
	return ""
}

// GetImages returns inline image payloads from the first choice.
func (c *StreamChunk) GetImages() []ResponseImage {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Images
	}
	return nil
}

// IsDone returns true if the stream has finished.
func (c *StreamChunk) IsDone() bool {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason != ""
	}
	return false
}

// HasError returns true if the chunk carries a terminal error.
func (c *StreamChunk) HasError() bool {
	return c.Error != nil
}
