// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"

	"github.com/jeranaias/orstudio/internal/model"
	"github.com/jeranaias/orstudio/internal/request"
	"github.com/jeranaias/orstudio/internal/tempfiles"
)

// =============================================================================
// REPLY DOWNLOADS
// =============================================================================

// ErrNoReply indicates there is no completed assistant reply to download.
var ErrNoReply = fmt.Errorf("no assistant reply to download")

// DownloadLastReply writes the most recent completed assistant reply to
// a temp file registered for shutdown cleanup, and returns its path.
func DownloadLastReply(conv *model.Conversation, reg *tempfiles.Registry) (string, error) {
	if conv == nil {
		return "", ErrNoReply
	}

	msg := conv.GetLastAssistantMessage()
	if msg == nil || msg.IsStreaming || msg.Content == "" {
		return "", ErrNoReply
	}

	return reg.Create("chat-reply-*.md", []byte(msg.Content))
}

// SaveResponseImages decodes the data-URL images of the most recent
// assistant reply into temp files and returns their paths. Replies
// without images yield an empty slice, not an error.
func SaveResponseImages(conv *model.Conversation, reg *tempfiles.Registry) ([]string, error) {
	if conv == nil {
		return nil, nil
	}
	msg := conv.GetLastAssistantMessage()
	if msg == nil {
		return nil, nil
	}

	var paths []string
	for _, img := range msg.Images {
		data, err := request.DecodeDataURL(img.ImageURL.URL)
		if err != nil {
			return paths, fmt.Errorf("failed to decode response image: %w", err)
		}
		path, err := reg.Create("generated-*.png", data)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
