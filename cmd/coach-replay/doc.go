// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// coach-replay drives the coach pipeline from a directory of
// screenshots instead of a live screen. Each image is delivered as one
// capture frame, in file-name order, one per --interval. The planner
// and locator are the real remote models; the overlay is drawn as
// styled lines on stdout: status updates, ring placements, and ring
// hides, in the order the UI would apply them.
//
// API keys and the coach context come from a preferences YAML file
// (--prefs, or the prefs path in the config file). Sending SIGHUP
// rereads it; a changed coach context takes effect on the next frame.
//
// With --transcript, every bus state is appended to a CBOR sequence
// file. --dump prints such a file, and --dump --diag prints its raw
// CBOR diagnostic notation.
//
// The replay ends when the last frame has been analyzed, or on
// SIGINT/SIGTERM. A session that ends in a capture error makes the
// command fail.
package main
