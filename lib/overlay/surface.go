// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import "errors"

// ErrPermissionMissing is returned by Surface.Attach when the platform
// refuses to show an overlay window.
var ErrPermissionMissing = errors.New("overlay permission missing")

// Surface is the platform overlay window. The ring and status strip
// pass touches through to the app underneath. Methods are called only
// from the Dispatcher goroutine.
type Surface interface {
	// Attach creates the window. Returns ErrPermissionMissing (or a
	// wrapped platform error) when the overlay cannot be shown.
	Attach() error

	// PlaceRing shows the ring with its top-left corner at left, top and
	// the given diameter, all in screen pixels.
	PlaceRing(left, top, size int)

	// HideRing hides the ring.
	HideRing()

	// SetStatusText replaces the status strip text.
	SetStatusText(text string)

	// Close removes the window.
	Close() error
}
