// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
)

// ErrReleased is returned when cloning a frame whose pixels have been
// handed back to the pool.
var ErrReleased = errors.New("frame: already released")

// Frame is one captured framebuffer. A Frame has a single owner; Clone
// produces an independently owned copy. Release returns the pixel
// buffer to the pool it came from and is idempotent.
type Frame struct {
	pixels   *image.RGBA
	pool     *Pool
	released atomic.Bool
}

// New wraps an existing RGBA image without pooling.
func New(pixels *image.RGBA) *Frame {
	return &Frame{pixels: pixels}
}

// Image returns the frame's pixels. The image must not be used after
// Release.
func (frame *Frame) Image() *image.RGBA { return frame.pixels }

// Width returns the frame width in pixels.
func (frame *Frame) Width() int { return frame.pixels.Rect.Dx() }

// Height returns the frame height in pixels.
func (frame *Frame) Height() int { return frame.pixels.Rect.Dy() }

// Released reports whether Release has been called.
func (frame *Frame) Released() bool { return frame.released.Load() }

// Clone copies the frame into a buffer from the same pool.
func (frame *Frame) Clone() (*Frame, error) {
	if frame == nil || frame.released.Load() {
		return nil, ErrReleased
	}
	clone := frame.pool.Get(frame.Width(), frame.Height())
	copyPixels(clone.pixels, frame.pixels)
	return clone, nil
}

// Release hands the pixel buffer back to the pool. Calls after the
// first are no-ops.
func (frame *Frame) Release() {
	if frame == nil || !frame.released.CompareAndSwap(false, true) {
		return
	}
	frame.pool.put(frame.pixels)
	frame.pixels = nil
}

// copyPixels copies row by row so sub-images with a wider stride are
// handled.
func copyPixels(dst, src *image.RGBA) {
	rowBytes := src.Rect.Dx() * 4
	for y := 0; y < src.Rect.Dy(); y++ {
		srcOffset := y * src.Stride
		dstOffset := y * dst.Stride
		copy(dst.Pix[dstOffset:dstOffset+rowBytes], src.Pix[srcOffset:srcOffset+rowBytes])
	}
}

// Pool recycles pixel buffers for frames of one or more sizes. The
// zero value is ready to use; a nil *Pool allocates fresh buffers and
// drops released ones.
type Pool struct {
	mu      sync.Mutex
	buffers map[image.Point]*sync.Pool
}

// Get returns a frame of the given size. Pixel contents are undefined.
func (pool *Pool) Get(width, height int) *Frame {
	rect := image.Rect(0, 0, width, height)
	if pool == nil {
		return &Frame{pixels: image.NewRGBA(rect)}
	}
	if pixels, ok := pool.sizePool(rect.Max).Get().(*image.RGBA); ok {
		return &Frame{pixels: pixels, pool: pool}
	}
	return &Frame{pixels: image.NewRGBA(rect), pool: pool}
}

func (pool *Pool) put(pixels *image.RGBA) {
	if pool == nil || pixels == nil || pixels.Rect.Min != (image.Point{}) {
		return
	}
	pool.sizePool(pixels.Rect.Max).Put(pixels)
}

func (pool *Pool) sizePool(size image.Point) *sync.Pool {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.buffers == nil {
		pool.buffers = make(map[image.Point]*sync.Pool)
	}
	sized, ok := pool.buffers[size]
	if !ok {
		sized = &sync.Pool{}
		pool.buffers[size] = sized
	}
	return sized
}
