// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

// MinCaptureSide is the smallest capture width or height.
const MinCaptureSide = 360

// Display describes the physical screen the coach draws on.
type Display struct {
	// Width and Height are the screen size in pixels.
	Width  int `yaml:"width" validate:"gt=0"`
	Height int `yaml:"height" validate:"gt=0"`

	// Density is pixels per density-independent pixel (Android's
	// displayMetrics.density; 1.0 at 160 dpi).
	Density float64 `yaml:"density" validate:"gt=0"`
}

// DP converts density-independent pixels to screen pixels, truncating.
func (display Display) DP(value float64) int {
	density := display.Density
	if density <= 0 {
		density = 1
	}
	return int(value * density)
}

// CaptureSize returns the capture resolution for display: half the
// width, at least MinCaptureSide, height following the aspect ratio
// (also at least MinCaptureSide), and neither side larger than the
// screen. Degenerate displays are treated as 1×1.
func CaptureSize(display Display) (width, height int) {
	screenWidth := max(display.Width, 1)
	screenHeight := max(display.Height, 1)

	width = max(screenWidth/2, MinCaptureSide)
	height = max(int(int64(width)*int64(screenHeight)/int64(screenWidth)), MinCaptureSide)

	return min(width, screenWidth), min(height, screenHeight)
}
