// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps API keys out of the Go heap while the coach
// holds them.
//
// A [Buffer] is an anonymous mmap region outside the garbage
// collector's reach. The pages are mlock'd when the process is allowed
// to (so keys never reach swap) and marked MADV_DONTDUMP (so they never
// reach a core dump). Both protections are best-effort because Android
// and container rlimits often forbid mlock. Close zeroes and unmaps the
// region and is idempotent.
//
// Keys cross into request code through [Buffer.Reveal], which returns a
// heap copy; callers keep that copy only for the duration of one HTTP
// request.
package secret
