// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package overlay draws the coach's pointer ring and status strip on a
// platform [Surface], and runs every UI mutation on one goroutine.
//
// [Renderer] turns screen-pixel targets into ring placements: the ring
// is at least 44 dp, centered on the target, and its top-left corner
// never goes off-screen. Repeated hides and unchanged status text are
// not forwarded to the surface.
//
// [Dispatcher] is the UI thread. The controller posts closures that
// touch the renderer or the state bus; they run in posting order, one
// at a time. Posting never blocks the caller.
package overlay
