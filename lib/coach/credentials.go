// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// credentials are the API keys an analysis needs.
type credentials struct {
	OpenAIKey string `validate:"required"`
	GeminiKey string `validate:"required"`
}

func readCredentials(store prefs.Store) credentials {
	return credentials{
		OpenAIKey: store.Lookup(prefs.KeyOpenAIAPIKey),
		GeminiKey: store.Lookup(prefs.KeyGeminiAPIKey),
	}
}

// missingCredential describes the first absent key: the status line and
// the error detail.
type missingCredential struct {
	status string
	detail string
}

// check returns the first missing key, OpenAI before Gemini.
func (creds credentials) check() (missingCredential, bool) {
	err := validate.Struct(creds)
	if err == nil {
		return missingCredential{}, true
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 && fieldErrors[0].Field() == "GeminiKey" {
		return missingCredential{
			status: "Missing Gemini key in prefs: " + prefs.KeyGeminiAPIKey,
			detail: "missing Gemini key",
		}, false
	}
	return missingCredential{
		status: "Missing OpenAI key in prefs: " + prefs.KeyOpenAIAPIKey,
		detail: "missing OpenAI key",
	}, false
}
