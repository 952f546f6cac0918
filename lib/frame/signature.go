// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

// Sampling grid and fixed-point scale for Signature.
const (
	SignatureGrid  = 32
	SignatureScale = 10_000
)

// Signature summarizes a frame for change detection. It samples one
// pixel every ⌈W/32⌉ columns and ⌈H/32⌉ rows, sums R+G+B per sample,
// and returns the mean multiplied by SignatureScale. The result lies in
// [0, 765·SignatureScale]; equal frames always produce equal
// signatures. A nil or released frame has signature 0.
func Signature(frame *Frame) uint64 {
	if frame == nil || frame.Released() {
		return 0
	}
	pixels := frame.pixels
	width, height := pixels.Rect.Dx(), pixels.Rect.Dy()
	if width <= 0 || height <= 0 {
		return 0
	}
	stepX := max((width+SignatureGrid-1)/SignatureGrid, 1)
	stepY := max((height+SignatureGrid-1)/SignatureGrid, 1)

	var accumulator, samples uint64
	for y := 0; y < height; y += stepY {
		row := pixels.Pix[y*pixels.Stride:]
		for x := 0; x < width; x += stepX {
			offset := x * 4
			accumulator += uint64(row[offset]) + uint64(row[offset+1]) + uint64(row[offset+2])
			samples++
		}
	}
	return accumulator * SignatureScale / samples
}

// SignatureDelta returns |a - b|.
func SignatureDelta(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
