// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/jpeg"

	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
)

// DefaultJPEGQuality is the encoding quality for screenshots.
const DefaultJPEGQuality = 70

// Image is a screenshot encoded for transport to a vision API.
type Image struct {
	// Base64 is the standard base64 encoding of the JPEG bytes, no
	// line wrapping.
	Base64 string

	// Width and Height are the encoded dimensions.
	Width  int
	Height int

	// Size is the JPEG size in bytes.
	Size int
}

// MIMEType is always image/jpeg.
func (image *Image) MIMEType() string { return "image/jpeg" }

// DataURL returns the image as a data: URL.
func (image *Image) DataURL() string {
	return "data:image/jpeg;base64," + image.Base64
}

// EncodeImage JPEG-encodes the frame. Quality is clamped to [10, 95].
func EncodeImage(source *frame.Frame, quality int) (*Image, error) {
	if source == nil || source.Released() {
		return nil, fmt.Errorf("vision: encoding image: %w", frame.ErrReleased)
	}
	quality = min(max(quality, 10), 95)

	var buffer bytes.Buffer
	if err := jpeg.Encode(&buffer, source.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("vision: encoding image: %w", err)
	}
	return &Image{
		Base64: base64.StdEncoding.EncodeToString(buffer.Bytes()),
		Width:  source.Width(),
		Height: source.Height(),
		Size:   buffer.Len(),
	}, nil
}
