// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package coach runs the screen coach loop: watch the screen, ask the
// planner what to tap, ask the locator where it is, and hold a ring on
// that spot until the screen changes.
//
// [Controller] is the loop. The capture goroutine calls
// [Controller.HandleFrame] for every frame; the controller keeps the
// latest frame, drops frames closer than the step gap, and compares a
// cheap [frame.Signature] against the one from the last analysis. An
// analysis is dispatched for the first frame, for a visual change past
// the threshold, or (while nothing is locked) after the no-lock retry
// interval. Once a target is locked the controller does no work until
// the screen changes.
//
// Analyses run on a bounded worker pool, one at a time per session. An
// analysis encodes the frame once, consults the planner (or reuses the
// instruction from the last few seconds), consults the locator, checks
// that the matched label carries the instruction's [Keyword], and
// converts the box with [Sanitize]. Every outcome is posted to the UI
// dispatcher, which owns the overlay renderer and is the only writer of
// the [Bus].
//
// Bus phases follow Idle → RequestingCapture → Starting → Scanning →
// (Candidate ↔ Locked) → Lost / Error → Idle. Only Locked shows the
// ring; publishing any other phase hides it in the same UI task.
package coach
