// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds test helpers shared by the coach packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests that wait on the state bus, the UI dispatcher, or a
// frame source do not call time.After directly. They are the only place
// tests use real wall-clock timeouts; all pipeline timing in tests runs
// on lib/clock's fake clock.
//
// Helpers call t.Fatalf on failure.
package testutil
