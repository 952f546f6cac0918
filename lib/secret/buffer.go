// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrEmpty is returned when constructing a Buffer from empty input.
var ErrEmpty = errors.New("secret: empty value")

// Buffer holds one secret value in mmap'd memory. A Buffer must not be
// copied. After Close, Reveal returns the empty string.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	length int
	locked bool
	closed bool
}

// fromBytes copies source into a protected region and zeroes source.
func fromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, ErrEmpty
	}

	pageSize := unix.Getpagesize()
	size := (len(source) + pageSize - 1) / pageSize * pageSize
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	buffer := &Buffer{data: data, length: len(source)}
	buffer.locked = unix.Mlock(data) == nil
	_ = unix.Madvise(data, unix.MADV_DONTDUMP)

	copy(buffer.data, source)
	clear(source)
	return buffer, nil
}

// FromString stores value. The string itself cannot be zeroed, only
// the intermediate byte copy.
func FromString(value string) (*Buffer, error) {
	return fromBytes([]byte(value))
}

// Reveal returns a heap copy of the secret for use at an API boundary.
func (buffer *Buffer) Reveal() string {
	if buffer == nil {
		return ""
	}
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	if buffer.closed {
		return ""
	}
	return string(buffer.data[:buffer.length])
}

// Len returns the secret length, 0 after Close.
func (buffer *Buffer) Len() int {
	if buffer == nil {
		return 0
	}
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	if buffer.closed {
		return 0
	}
	return buffer.length
}

// String redacts the value so a Buffer can be logged safely.
func (buffer *Buffer) String() string {
	if buffer.Len() == 0 {
		return "[empty]"
	}
	return "[redacted]"
}

// Close zeroes, unlocks, and unmaps the region.
func (buffer *Buffer) Close() error {
	if buffer == nil {
		return nil
	}
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	if buffer.closed {
		return nil
	}
	buffer.closed = true

	clear(buffer.data)
	if buffer.locked {
		_ = unix.Munlock(buffer.data)
	}
	err := unix.Munmap(buffer.data)
	buffer.data = nil
	if err != nil {
		return fmt.Errorf("secret: munmap failed: %w", err)
	}
	return nil
}
