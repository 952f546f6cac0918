// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture delivers downscaled screen frames to the coach.
//
// A [Source] pushes frames to a [Handler] from its own goroutine.
// Ownership of every delivered frame passes to the handler. Start
// returning an error means the source could not initialize at all;
// "no frame yet" is just silence. Failures after a successful start
// arrive through Handler.HandleFatal.
//
// [Sequence] replays screenshots from a directory, for the replay
// harness and for tests. [Feed] is a push source for hosts that own the
// real platform capture and hand frames in themselves.
package capture

import (
	"context"
	"errors"

	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
)

// ErrNoFrames is returned by Sequence.Start for a directory with no
// decodable image files.
var ErrNoFrames = errors.New("capture: no frames")

// ErrNotStarted is returned by Feed.Push before Start.
var ErrNotStarted = errors.New("capture: source not started")

// Handler receives frames and fatal runtime failures.
type Handler interface {
	// HandleFrame takes ownership of captured.
	HandleFrame(captured *frame.Frame)

	// HandleFatal reports that the source stopped delivering and will
	// not recover.
	HandleFatal(err error)
}

// Source is a frame producer.
type Source interface {
	// Start begins delivery to handler. Delivery stops when ctx is
	// cancelled or Stop is called.
	Start(ctx context.Context, handler Handler) error

	// Stop halts delivery and waits for the delivery goroutine. Safe
	// to call more than once and before Start.
	Stop() error
}

// Requester is implemented by sources that need user consent before
// Start, such as a screen-recording permission prompt. Request blocks
// until the user answers; an error means consent was refused.
type Requester interface {
	Request(ctx context.Context) error
}
