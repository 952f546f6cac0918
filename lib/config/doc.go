// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the coach's YAML configuration.
//
// Configuration comes from a single file named by either the
// COACH_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no file discovery. Values the file omits
// keep the production defaults from [Default], so an empty file is a
// valid configuration.
//
// The file covers the display the coach draws on, controller timings,
// the planner and locator endpoints, HTTP timeouts, and the path of the
// preferences file. API keys never live here: they are read from the
// preferences file, which has its own loader in lib/prefs.
//
// The prefs path supports ${HOME} and ${VAR:-default} expansion.
//
// Key exports:
//
//   - [Config] -- the whole file
//   - [Default] -- production defaults
//   - [Load], [LoadFile], [Parse] -- entry points
package config
