// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"errors"
	"fmt"
)

// kindError is a sentinel carrying a short status detail.
type kindError struct{ detail string }

func (err *kindError) Error() string  { return "vision: " + err.detail }
func (err *kindError) Detail() string { return err.detail }

// Sentinel outcomes.
var (
	// ErrInsufficientQuota means the planner account is out of quota.
	ErrInsufficientQuota error = &kindError{"insufficient_quota"}

	// ErrEmptyInstruction means the planner answered with blank text.
	ErrEmptyInstruction error = &kindError{"empty_instruction"}

	// ErrNoTarget means the locator reported the all-zero box: the
	// target is not on this screen.
	ErrNoTarget error = &kindError{"no_target"}

	// ErrBackingOff means the locator is inside a rate-limit backoff
	// window and did not call the API.
	ErrBackingOff error = &kindError{"backing_off"}

	// ErrRateLimited means the API just reported a quota or rate limit.
	ErrRateLimited error = &kindError{"rate_limited"}

	// ErrNetworkFailed wraps transport failures.
	ErrNetworkFailed error = &kindError{"network_failed"}

	// ErrParseFailed wraps undecodable responses.
	ErrParseFailed error = &kindError{"parse_failed"}

	// ErrMissingKey means the API key preference is blank.
	ErrMissingKey error = &kindError{"missing_key"}
)

// ProviderError is an error envelope returned by a vision API.
type ProviderError struct {
	// Provider names the API ("openai", "gemini").
	Provider string

	// StatusCode is the HTTP status.
	StatusCode int

	// Code, Type, and Status are the envelope's classification fields.
	// OpenAI fills Code and Type; Gemini fills Code (numeric, as text)
	// and Status.
	Code   string
	Type   string
	Status string

	// Message is the human-readable description.
	Message string
}

func (err *ProviderError) Error() string {
	return fmt.Sprintf("vision/%s: HTTP %d: %s", err.Provider, err.StatusCode, err.Detail())
}

// Detail renders the envelope as "code:type:message" (OpenAI) or
// "code:status:message" (Gemini).
func (err *ProviderError) Detail() string {
	kind := err.Type
	if kind == "" {
		kind = err.Status
	}
	return err.Code + ":" + kind + ":" + err.Message
}

// IsRateLimited reports a quota or rate-limit rejection.
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == 429 || err.Code == "429" || err.Status == "RESOURCE_EXHAUSTED"
}

// Detail returns the short detail string for err: the sentinel's
// detail, a provider envelope's "code:type:message", or err.Error().
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var provider *ProviderError
	if errors.As(err, &provider) {
		return provider.Detail()
	}
	var detailer interface{ Detail() string }
	if errors.As(err, &detailer) {
		return detailer.Detail()
	}
	return err.Error()
}
