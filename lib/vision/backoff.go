// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sagielster/DeviceLinkAssistant/lib/clock"
)

// Backoff bounds.
const (
	// DefaultBackoff applies when a rate-limit response carries no
	// usable retry hint.
	DefaultBackoff = 30 * time.Second

	// MinimumBackoff floors any suggested retry interval.
	MinimumBackoff = 2 * time.Second
)

// Backoff is a monotonic "do not call before" deadline.
type Backoff struct {
	clock clock.Clock

	mu    sync.Mutex
	until time.Time
}

// NewBackoff returns an inactive Backoff reading time from clk.
func NewBackoff(clk clock.Clock) *Backoff {
	return &Backoff{clock: clk}
}

// Remaining returns how long the backoff still holds, or 0.
func (backoff *Backoff) Remaining() time.Duration {
	backoff.mu.Lock()
	defer backoff.mu.Unlock()
	remaining := backoff.until.Sub(backoff.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Engage sets the deadline to now plus interval, floored at
// MinimumBackoff. A zero interval means DefaultBackoff. Returns the
// applied interval.
func (backoff *Backoff) Engage(interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = DefaultBackoff
	}
	interval = max(interval, MinimumBackoff)

	backoff.mu.Lock()
	defer backoff.mu.Unlock()
	backoff.until = backoff.clock.Now().Add(interval)
	return interval
}

var retryHintPattern = regexp.MustCompile(`(?i)please retry in\s+([0-9]+(?:\.[0-9]+)?)\s*(ms|s)`)

// ParseRetryHint extracts the interval from a "Please retry in 9.2s"
// message. Returns false when the message carries no hint.
func ParseRetryHint(message string) (time.Duration, bool) {
	match := retryHintPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	unit := time.Second
	if strings.EqualFold(match[2], "ms") {
		unit = time.Millisecond
	}
	return time.Duration(value * float64(unit)), true
}

// parseRetryDelay decodes a protobuf Duration in JSON form ("9s",
// "9.249s").
func parseRetryDelay(text string) (time.Duration, bool) {
	if text == "" {
		return 0, false
	}
	duration, err := time.ParseDuration(text)
	if err != nil || duration <= 0 {
		return 0, false
	}
	return duration, true
}
