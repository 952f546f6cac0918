// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package frame holds captured framebuffers and the cheap computations
// the coach runs on them.
//
// A [Frame] is an RGBA pixel grid at capture resolution: half the
// display width (at least 360 px) with the display's aspect ratio
// preserved, see [CaptureSize]. Frames are drawn from a [Pool] and
// handed back with [Frame.Release]; a frame must never outlive the
// analysis that owns it. [Slot] is the single shared "latest frame"
// cell between the capture goroutine and the controller.
//
// [Signature] is the change detector: a fixed-point mean of R+G+B over
// a 32×32 sampling grid. It is never used for identity. [Fingerprint]
// is a content hash used only to correlate log lines.
package frame
