// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the coach
// pipeline.
//
// Every scheduling rule in the pipeline is a wall-clock comparison: the
// 350 ms step gap between signature checks, the 900 ms API cooldown,
// the 6 s no-lock retry, the 2.5 s locating hold, and the locator's
// rate-limit backoff. Code that makes those comparisons takes a [Clock]
// instead of calling time.Now so tests can drive every rule to its
// boundary with a [FakeClock].
//
// Production wiring:
//
//	controller := coach.New(coach.Options{Clock: clock.Real(), ...})
//
// Test wiring:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	controller := coach.New(coach.Options{Clock: fake, ...})
//	fake.Advance(400 * time.Millisecond)
//
// Frame sources that tick (see lib/capture) register a ticker on the
// clock. Tests call [FakeClock.WaitForTimers] before [FakeClock.Advance]
// so the ticker is registered before time moves.
package clock
