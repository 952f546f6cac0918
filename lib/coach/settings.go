// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import (
	"time"

	"github.com/sagielster/DeviceLinkAssistant/lib/vision"
)

// Timing holds the controller's scheduling constants.
type Timing struct {
	// StepGap drops frames arriving sooner than this after the last
	// inspected one.
	StepGap time.Duration `yaml:"step_gap" validate:"gt=0"`

	// Cooldown is the minimum time between analyses.
	Cooldown time.Duration `yaml:"cooldown" validate:"gte=0"`

	// NoLockRetry re-analyzes an unchanged screen this long after the
	// last analysis, while nothing is locked.
	NoLockRetry time.Duration `yaml:"no_lock_retry" validate:"gt=0"`

	// LocatingHold reuses the last planner instruction for this long
	// instead of asking the planner again.
	LocatingHold time.Duration `yaml:"locating_hold" validate:"gte=0"`

	// ChangeThreshold is the signature delta that counts as a new
	// screen.
	ChangeThreshold uint64 `yaml:"change_threshold" validate:"gt=0"`
}

// DefaultTiming returns the production timings.
func DefaultTiming() Timing {
	return Timing{
		StepGap:         350 * time.Millisecond,
		Cooldown:        900 * time.Millisecond,
		NoLockRetry:     6 * time.Second,
		LocatingHold:    2500 * time.Millisecond,
		ChangeThreshold: 900_000,
	}
}

// Settings tunes a Controller.
type Settings struct {
	Timing Timing `yaml:"timing"`

	// Workers bounds concurrently running analyses. One analysis is
	// live per session; the spare slot lets a new session start while
	// a stopped session's request is still unwinding.
	Workers int `yaml:"workers" validate:"gte=1,lte=8"`

	// JPEGQuality is the screenshot encoding quality.
	JPEGQuality int `yaml:"jpeg_quality" validate:"gte=10,lte=95"`
}

// DefaultSettings returns the production settings.
func DefaultSettings() Settings {
	return Settings{
		Timing:      DefaultTiming(),
		Workers:     2,
		JPEGQuality: vision.DefaultJPEGQuality,
	}
}
