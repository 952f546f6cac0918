// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vision holds the two remote vision-model clients the coach
// consults for every analysis.
//
// The [Planner] looks at a screenshot and the coach context and answers
// with one short imperative, "Tap Continue". [OpenAIPlanner] implements
// it over the OpenAI Chat Completions API with the screenshot attached
// as an inline JPEG data URL.
//
// The [Locator] looks at the same screenshot and an instruction and
// answers with a normalized bounding box plus the label it matched.
// [GeminiLocator] implements it over Gemini generateContent. It owns a
// [Backoff]: once the API reports a quota or rate limit, calls
// short-circuit with [ErrBackingOff] until the suggested retry interval
// (or 30 s) has passed.
//
// Outcomes are expressed as errors. [ErrInsufficientQuota],
// [ErrEmptyInstruction], [ErrNoTarget], [ErrBackingOff],
// [ErrNetworkFailed], [ErrParseFailed] and [ErrMissingKey] are
// sentinels for errors.Is; API error envelopes surface as
// [*ProviderError]. [Detail] renders any of them as the short detail
// string shown in the coach status strip.
//
// The screenshot is encoded once per analysis by [EncodeImage] and
// shared by both clients.
package vision
