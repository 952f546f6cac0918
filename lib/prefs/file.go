// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package prefs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sagielster/DeviceLinkAssistant/lib/secret"
)

// secretKeys are the preferences held in secret buffers rather than
// plain strings.
var secretKeys = map[string]bool{
	KeyOpenAIAPIKey: true,
	KeyGeminiAPIKey: true,
}

// File is a Store loaded once from a flat YAML mapping:
//
//	openai_api_key: sk-...
//	gemini_api_key: AIza...
//	gemini_model: gemini-2.0-flash
//	coach_selected_device: Living Room Speaker
//	coach_expected_app_name: Google Home
//	coach_expected_app_query: google home
//
// API keys are moved into secret buffers at load; Close releases them.
type File struct {
	values  map[string]string
	secrets map[string]*secret.Buffer
}

// LoadFile reads and parses path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prefs: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a File from YAML data. Non-scalar values are rejected.
func Parse(data []byte) (*File, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("prefs: parsing YAML: %w", err)
	}

	file := &File{
		values:  make(map[string]string, len(raw)),
		secrets: make(map[string]*secret.Buffer),
	}
	for key, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !secretKeys[key] {
			file.values[key] = value
			continue
		}
		buffer, err := secret.FromString(value)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("prefs: protecting %s: %w", key, err)
		}
		file.secrets[key] = buffer
	}
	return file, nil
}

// Lookup implements Store.
func (file *File) Lookup(key string) string {
	if buffer, ok := file.secrets[key]; ok {
		return buffer.Reveal()
	}
	return file.values[key]
}

// Close zeroes the secret buffers. Lookups of API keys return "" after
// Close.
func (file *File) Close() error {
	var firstError error
	for _, buffer := range file.secrets {
		if err := buffer.Close(); err != nil && firstError == nil {
			firstError = err
		}
	}
	return firstError
}
