// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package request

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"

	// Register decoders for the formats users actually attach.
	_ "image/gif"
	_ "image/png"
)

// DefaultImagePrompt is used when an image is attached without any text.
const DefaultImagePrompt = "Describe this image in detail."

// jpegQuality is the re-encode quality for attached images.
const jpegQuality = 90

// dataURLPrefix is the scheme prefix emitted by EncodeJPEGDataURL.
const dataURLPrefix = "data:image/jpeg;base64,"

// EncodeJPEGDataURL decodes an image in any registered format and
// re-encodes it as a base64 JPEG data URL. Every source format is
// normalized to JPEG; transparency is flattened onto white and not
// preserved.
func EncodeJPEGDataURL(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Flatten onto an opaque white background. JPEG has no alpha
	// channel, so this is where transparency is lost.
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode JPEG: %w", err)
	}

	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL extracts the raw bytes from a base64 data URL, as
// returned by image-output models.
func DecodeDataURL(url string) ([]byte, error) {
	_, encoded, ok := strings.Cut(url, ",")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URL payload: %w", err)
	}
	return data, nil
}
