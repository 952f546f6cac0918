// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"errors"
	"sync"
)

// ErrEmpty is returned by Slot.Clone when no frame has been stored.
var ErrEmpty = errors.New("frame: slot is empty")

// Slot holds the most recent frame. The capture goroutine writes it;
// the controller reads it only under the lock, by cloning or by
// inspecting in place.
type Slot struct {
	mu     sync.Mutex
	latest *Frame
}

// Put stores frame as the latest, releasing the frame it replaces.
// The slot takes ownership of frame.
func (slot *Slot) Put(frame *Frame) {
	slot.mu.Lock()
	previous := slot.latest
	slot.latest = frame
	slot.mu.Unlock()

	if previous != nil && previous != frame {
		previous.Release()
	}
}

// Clone returns an independently owned copy of the latest frame.
func (slot *Slot) Clone() (*Frame, error) {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.latest == nil {
		return nil, ErrEmpty
	}
	return slot.latest.Clone()
}

// Inspect calls fn with the latest frame while holding the lock, so
// the frame cannot be released underneath fn. Returns false if the
// slot is empty. fn must not retain the frame or block.
func (slot *Slot) Inspect(fn func(*Frame)) bool {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.latest == nil {
		return false
	}
	fn(slot.latest)
	return true
}

// Clear releases the stored frame. Safe to call repeatedly.
func (slot *Slot) Clear() {
	slot.mu.Lock()
	previous := slot.latest
	slot.latest = nil
	slot.mu.Unlock()

	previous.Release()
}
