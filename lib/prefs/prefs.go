// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package prefs is the read-only key/value view of user preferences the
// coach pipeline consults: API keys, the locator model, and the coach
// context chosen in the device-selection UI.
//
// The pipeline reads through [Store] at dispatch time, so a key entered
// while coach mode is running takes effect on the next analysis. Values
// are always trimmed; an absent key reads as "".
package prefs

import (
	"strings"
	"sync"
)

// Preference keys.
const (
	KeyOpenAIAPIKey          = "openai_api_key"
	KeyGeminiAPIKey          = "gemini_api_key"
	KeyGeminiModel           = "gemini_model"
	KeyCoachSelectedDevice   = "coach_selected_device"
	KeyCoachExpectedAppName  = "coach_expected_app_name"
	KeyCoachExpectedAppQuery = "coach_expected_app_query"
)

// DefaultGeminiModel is used when gemini_model is absent or blank.
const DefaultGeminiModel = "gemini-2.0-flash"

// Store is a read-only preference lookup.
type Store interface {
	// Lookup returns the trimmed value for key, or "" if unset.
	Lookup(key string) string
}

// GeminiModel returns the configured locator model or the default.
func GeminiModel(store Store) string {
	if model := store.Lookup(KeyGeminiModel); model != "" {
		return model
	}
	return DefaultGeminiModel
}

// Memory is an in-process Store that the host UI can update while the
// pipeline runs. The zero value is empty and ready to use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns a Memory seeded with values.
func NewMemory(values map[string]string) *Memory {
	memory := &Memory{values: make(map[string]string, len(values))}
	for key, value := range values {
		memory.values[key] = value
	}
	return memory
}

// Lookup implements Store.
func (memory *Memory) Lookup(key string) string {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	return strings.TrimSpace(memory.values[key])
}

// Set stores value under key. An empty value deletes the key.
func (memory *Memory) Set(key, value string) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	if memory.values == nil {
		memory.values = make(map[string]string)
	}
	if value == "" {
		delete(memory.values, key)
		return
	}
	memory.values[key] = value
}
