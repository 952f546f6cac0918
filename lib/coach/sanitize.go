// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import (
	"errors"
	"fmt"

	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
	"github.com/sagielster/DeviceLinkAssistant/lib/overlay"
	"github.com/sagielster/DeviceLinkAssistant/lib/vision"
)

// Box acceptance bounds, as fractions of the screen.
const (
	MaxBoxWidth  = 0.55
	MaxBoxHeight = 0.35
)

// MaxRingDP caps the ring diameter.
const MaxRingDP = 140

// ErrOversizedBox rejects boxes that cover too much of the screen to be
// a single tap target.
var ErrOversizedBox = errors.New("coach: box too large for a tap target")

// Target is a tap target in screen pixels.
type Target struct {
	CX       int `cbor:"1,keyasint"`
	CY       int `cbor:"2,keyasint"`
	Diameter int `cbor:"3,keyasint"`
}

// Sanitize converts a normalized box into a screen target: the box
// center clamped to the screen, diameter from the longer box side
// clamped to [44 dp, 140 dp].
func Sanitize(box vision.Box, display frame.Display) (Target, error) {
	if box.W > MaxBoxWidth || box.H > MaxBoxHeight {
		return Target{}, fmt.Errorf("%w: w=%.2f h=%.2f", ErrOversizedBox, box.W, box.H)
	}
	width := float64(display.Width)
	height := float64(display.Height)

	widthPixels := max(int(box.W*width), 1)
	heightPixels := max(int(box.H*height), 1)
	diameter := max(widthPixels, heightPixels)
	diameter = min(max(diameter, display.DP(overlay.MinRingDP)), display.DP(MaxRingDP))

	return Target{
		CX:       int(clampUnit(box.X+box.W/2) * width),
		CY:       int(clampUnit(box.Y+box.H/2) * height),
		Diameter: diameter,
	}, nil
}

func clampUnit(value float64) float64 {
	return min(max(value, 0), 1)
}
