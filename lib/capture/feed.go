// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"image"
	"sync"

	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
)

// Feed is a Source the host pushes images into. Push runs on the
// caller's goroutine, which plays the role of the capture thread.
type Feed struct {
	pool   *frame.Pool
	width  int
	height int

	mu         sync.Mutex
	handler    Handler
	generation uint64
}

// NewFeed returns a Feed that downscales pushed images to the capture
// size for display.
func NewFeed(display frame.Display, pool *frame.Pool) *Feed {
	width, height := frame.CaptureSize(display)
	return &Feed{pool: pool, width: width, height: height}
}

// Size is the capture resolution.
func (feed *Feed) Size() (width, height int) { return feed.width, feed.height }

// Start implements Source. Cancelling ctx has the effect of Stop.
func (feed *Feed) Start(ctx context.Context, handler Handler) error {
	feed.mu.Lock()
	feed.handler = handler
	feed.generation++
	generation := feed.generation
	feed.mu.Unlock()

	go func() {
		<-ctx.Done()
		feed.detach(generation)
	}()
	return nil
}

// Stop implements Source.
func (feed *Feed) Stop() error {
	feed.mu.Lock()
	feed.handler = nil
	feed.mu.Unlock()
	return nil
}

// Push downscales img and delivers it. Returns ErrNotStarted when no
// handler is attached; img is not retained.
func (feed *Feed) Push(img image.Image) error {
	handler, _ := feed.current()
	if handler == nil {
		return ErrNotStarted
	}
	handler.HandleFrame(frame.Scale(feed.pool, img, feed.width, feed.height))
	return nil
}

// Fail reports a fatal capture failure and detaches the handler.
func (feed *Feed) Fail(err error) {
	handler, generation := feed.current()
	if handler == nil {
		return
	}
	feed.detach(generation)
	handler.HandleFatal(err)
}

func (feed *Feed) current() (Handler, uint64) {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	return feed.handler, feed.generation
}

// detach drops the handler only if no later Start replaced it.
func (feed *Feed) detach(generation uint64) {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.generation == generation {
		feed.handler = nil
	}
}
