// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a short hex digest of the frame's pixels. It
// tags the log lines of one analysis so planner and locator calls on
// the same frame can be matched up.
func Fingerprint(frame *Frame) string {
	if frame == nil || frame.Released() {
		return "released"
	}
	sum := blake3.Sum256(frame.pixels.Pix)
	return hex.EncodeToString(sum[:6])
}
