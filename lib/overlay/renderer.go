// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"fmt"
	"log/slog"

	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
)

// Ring and status bounds.
const (
	// MinRingDP is the smallest ring diameter in dp.
	MinRingDP = 44

	// StatusRunes is how much status text the strip shows.
	StatusRunes = 80

	// StatusPrefix precedes every status line.
	StatusPrefix = "Coach: "
)

// Ring is a placed ring in screen pixels.
type Ring struct {
	Left, Top, Size int
}

// Renderer keeps the surface in sync with the requested overlay state.
// It is not safe for concurrent use; call it from the Dispatcher.
type Renderer struct {
	surface Surface
	display frame.Display
	logger  *slog.Logger

	attached    bool
	closed      bool
	ringVisible bool
	ring        Ring
	status      string
}

// NewRenderer wraps surface. The display supplies dp conversion.
func NewRenderer(surface Surface, display frame.Display, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{surface: surface, display: display, logger: logger}
}

// Attach attaches the surface. Calling it again after success is a
// no-op.
func (renderer *Renderer) Attach() error {
	if renderer.closed {
		return fmt.Errorf("overlay: renderer closed")
	}
	if renderer.attached {
		return nil
	}
	if err := renderer.surface.Attach(); err != nil {
		return fmt.Errorf("overlay: attaching surface: %w", err)
	}
	renderer.attached = true
	return nil
}

// ShowAt centers a ring of diameter max(diameter, 44 dp) on cx, cy.
func (renderer *Renderer) ShowAt(cx, cy, diameter int) {
	if !renderer.live() {
		return
	}
	ring := PlaceRing(renderer.display, cx, cy, diameter)
	if renderer.ringVisible && ring == renderer.ring {
		return
	}
	renderer.surface.PlaceRing(ring.Left, ring.Top, ring.Size)
	renderer.ring = ring
	renderer.ringVisible = true
}

// Hide hides the ring if it is showing.
func (renderer *Renderer) Hide() {
	if !renderer.live() || !renderer.ringVisible {
		return
	}
	renderer.surface.HideRing()
	renderer.ringVisible = false
}

// SetStatus shows "Coach: " plus the first 80 runes of text.
func (renderer *Renderer) SetStatus(text string) {
	if !renderer.live() {
		return
	}
	line := StatusLine(text)
	if line == renderer.status {
		return
	}
	renderer.surface.SetStatusText(line)
	renderer.status = line
}


// Close hides the ring and closes the surface. Idempotent.
func (renderer *Renderer) Close() {
	if renderer.closed {
		return
	}
	renderer.closed = true
	if !renderer.attached {
		return
	}
	if renderer.ringVisible {
		renderer.surface.HideRing()
		renderer.ringVisible = false
	}
	if err := renderer.surface.Close(); err != nil {
		renderer.logger.Warn("closing overlay surface", "error", err)
	}
}

func (renderer *Renderer) live() bool {
	return renderer.attached && !renderer.closed
}

// PlaceRing computes the ring for a target: diameter at least
// MinRingDP, top-left at the center minus half the diameter, clamped at
// zero.
func PlaceRing(display frame.Display, cx, cy, diameter int) Ring {
	size := max(diameter, display.DP(MinRingDP))
	return Ring{
		Left: max(cx-size/2, 0),
		Top:  max(cy-size/2, 0),
		Size: size,
	}
}

// StatusLine formats text for the status strip.
func StatusLine(text string) string {
	runes := []rune(text)
	if len(runes) > StatusRunes {
		runes = runes[:StatusRunes]
	}
	return StatusPrefix + string(runes)
}
