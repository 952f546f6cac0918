// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"image"

	"golang.org/x/image/draw"
)

// Scale draws src into a pooled frame of width×height. Sources are
// expected to share the target's aspect ratio (see CaptureSize); the
// image is stretched otherwise. Bilinear approximation keeps the cost
// low enough to run on every captured frame.
func Scale(pool *Pool, src image.Image, width, height int) *Frame {
	frame := pool.Get(width, height)
	bounds := src.Bounds()

	if rgba, ok := src.(*image.RGBA); ok && bounds.Dx() == width && bounds.Dy() == height {
		copyPixels(frame.pixels, rgba)
		return frame
	}
	draw.ApproxBiLinear.Scale(frame.pixels, frame.pixels.Rect, src, bounds, draw.Src, nil)
	return frame
}
