// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/sagielster/DeviceLinkAssistant/lib/clock"
	"github.com/sagielster/DeviceLinkAssistant/lib/netutil"
	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
)

// Box is a normalized bounding box: X, Y is the top-left corner and
// all four values are fractions of the image size.
type Box struct {
	X float64 `cbor:"1,keyasint" yaml:"x"`
	Y float64 `cbor:"2,keyasint" yaml:"y"`
	W float64 `cbor:"3,keyasint" yaml:"w"`
	H float64 `cbor:"4,keyasint" yaml:"h"`
}

// IsZero reports the all-zero "not on screen" box.
func (box Box) IsZero() bool {
	return box.X == 0 && box.Y == 0 && box.W == 0 && box.H == 0
}

// Located is a locator answer.
type Located struct {
	Box Box

	// MatchedText is the visible label the model matched, trimmed.
	// May be "".
	MatchedText string
}

// Locator finds the on-screen element an instruction refers to.
type Locator interface {
	// Locate returns the target box. Errors include ErrNoTarget,
	// ErrBackingOff, ErrRateLimited, ErrNetworkFailed, ErrParseFailed,
	// ErrMissingKey, and *ProviderError.
	Locate(ctx context.Context, screenshot *Image, instruction string) (Located, error)
}

// Gemini locator defaults.
const (
	DefaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultLocatorMaxTokens = 120
)

// GeminiLocatorConfig configures NewGeminiLocator.
type GeminiLocatorConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	MaxTokens  int

	// Keys provides gemini_api_key and gemini_model, read on every
	// call.
	Keys prefs.Store

	// Clock drives the rate-limit backoff. Nil means the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// GeminiLocator implements Locator over generateContent.
type GeminiLocator struct {
	httpClient *http.Client
	baseURL    string
	maxTokens  int
	keys       prefs.Store
	backoff    *Backoff
	logger     *slog.Logger
}

// NewGeminiLocator returns a locator. Keys is required.
func NewGeminiLocator(config GeminiLocatorConfig) *GeminiLocator {
	locator := &GeminiLocator{
		httpClient: config.HTTPClient,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		maxTokens:  config.MaxTokens,
		keys:       config.Keys,
		logger:     config.Logger,
	}
	if locator.httpClient == nil {
		locator.httpClient = netutil.NewClient(netutil.DefaultClientTimeouts)
	}
	if locator.baseURL == "" {
		locator.baseURL = DefaultGeminiBaseURL
	}
	if locator.maxTokens <= 0 {
		locator.maxTokens = DefaultLocatorMaxTokens
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	locator.backoff = NewBackoff(clk)
	if locator.logger == nil {
		locator.logger = slog.Default()
	}
	return locator
}

// Locate implements Locator.
func (locator *GeminiLocator) Locate(ctx context.Context, screenshot *Image, instruction string) (Located, error) {
	if remaining := locator.backoff.Remaining(); remaining > 0 {
		locator.logger.Warn("locator backoff active, skipping call", "remaining", remaining)
		return Located{}, fmt.Errorf("vision/gemini: %w", ErrBackingOff)
	}

	apiKey := locator.keys.Lookup(prefs.KeyGeminiAPIKey)
	if apiKey == "" {
		return Located{}, fmt.Errorf("vision/gemini: %w", ErrMissingKey)
	}
	model := prefs.GeminiModel(locator.keys)
	endpoint := locator.baseURL + "/models/" + url.PathEscape(model) + ":generateContent"

	call := apiCall{
		httpClient: locator.httpClient,
		endpoint:   endpoint + "?key=" + url.QueryEscape(apiKey),
		prefix:     "vision/gemini",
	}
	reply, err := call.post(ctx, locator.buildRequest(screenshot, instruction))
	if err != nil {
		// The transport error text embeds the URL, key included.
		return Located{}, redactKey(err, apiKey)
	}
	locator.logger.Debug("locator response",
		"endpoint", endpoint,
		"status", reply.statusCode,
		"body", netutil.Truncate(string(reply.body), 2000),
	)
	return locator.parseReply(reply)
}

func (locator *GeminiLocator) buildRequest(screenshot *Image, instruction string) geminiRequest {
	return geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: locatorPrompt(instruction)},
				{InlineData: &geminiInlineData{MIMEType: screenshot.MIMEType(), Data: screenshot.Base64}},
			},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0,
			MaxOutputTokens: locator.maxTokens,
		},
	}
}

func (locator *GeminiLocator) parseReply(reply replyBody) (Located, error) {
	var wireResponse geminiResponse
	decodeErr := json.Unmarshal(reply.body, &wireResponse)

	if decodeErr == nil && wireResponse.Error != nil {
		wireError := wireResponse.Error
		providerError := &ProviderError{
			Provider:   "gemini",
			StatusCode: reply.statusCode,
			Code:       string(wireError.Code),
			Status:     wireError.Status,
			Message:    wireError.Message,
		}
		if providerError.IsRateLimited() {
			interval := locator.backoff.Engage(wireError.retryInterval())
			locator.logger.Warn("locator rate limited, backing off", "interval", interval)
			return Located{}, fmt.Errorf("%w: %w", ErrRateLimited, providerError)
		}
		return Located{}, providerError
	}
	if !reply.ok() {
		providerError := &ProviderError{
			Provider:   "gemini",
			StatusCode: reply.statusCode,
			Message:    netutil.Truncate(string(reply.body), 200),
		}
		if providerError.IsRateLimited() {
			interval := locator.backoff.Engage(0)
			locator.logger.Warn("locator rate limited, backing off", "interval", interval)
			return Located{}, fmt.Errorf("%w: %w", ErrRateLimited, providerError)
		}
		return Located{}, providerError
	}
	if decodeErr != nil {
		return Located{}, fmt.Errorf("vision/gemini: %w: %v", ErrParseFailed, decodeErr)
	}

	modelText, found := wireResponse.firstText()
	if !found {
		return Located{}, fmt.Errorf("vision/gemini: %w: no candidate text", ErrParseFailed)
	}
	return parseLocated(modelText)
}

// parseLocated decodes the first JSON object in the model text.
// Comments and trailing commas are tolerated.
func parseLocated(modelText string) (Located, error) {
	objectText := firstObject(modelText)
	if objectText == "" {
		return Located{}, fmt.Errorf("vision/gemini: %w: no JSON object in %q", ErrParseFailed, netutil.Truncate(modelText, 120))
	}

	var wireBox struct {
		X           *float64 `json:"x"`
		Y           *float64 `json:"y"`
		W           *float64 `json:"w"`
		H           *float64 `json:"h"`
		MatchedText string   `json:"matched_text"`
	}
	if err := json.Unmarshal(jsonc.ToJSON([]byte(objectText)), &wireBox); err != nil {
		return Located{}, fmt.Errorf("vision/gemini: %w: %v", ErrParseFailed, err)
	}
	if wireBox.X == nil || wireBox.Y == nil || wireBox.W == nil || wireBox.H == nil {
		return Located{}, fmt.Errorf("vision/gemini: %w: box missing x, y, w or h", ErrParseFailed)
	}

	located := Located{
		Box:         Box{X: *wireBox.X, Y: *wireBox.Y, W: *wireBox.W, H: *wireBox.H},
		MatchedText: strings.TrimSpace(wireBox.MatchedText),
	}
	if located.Box.IsZero() {
		return Located{}, fmt.Errorf("vision/gemini: %w", ErrNoTarget)
	}
	return located, nil
}

func redactKey(err error, apiKey string) error {
	text := err.Error()
	if !strings.Contains(text, apiKey) {
		return err
	}
	return &redactedError{text: strings.ReplaceAll(text, apiKey, "REDACTED"), cause: err}
}

// redactedError keeps errors.Is working through the original chain
// while hiding the key from Error().
type redactedError struct {
	text  string
	cause error
}

func (err *redactedError) Error() string { return err.text }
func (err *redactedError) Unwrap() error { return err.cause }

func locatorPrompt(instruction string) string {
	return `You are a precise UI element locator for a phone screenshot.
Task: find the single tap target that best matches the instruction.

Instruction: ` + instruction + `

Rules:
0) Prefer an element whose visible label EXACTLY matches the instruction's key text (e.g., Open/Continue/Install).
   If multiple matches exist, choose the most prominent actionable button on the main flow.
0b) Ignore "Sponsored" / advertisement cards and their Install buttons unless the instruction explicitly mentions Sponsored/Ad.
1) Return ONLY a single JSON object with keys x,y,w,h (no markdown, no extra text).
2) x,y is the TOP-LEFT of the target's bounding box; w,h are width/height.
3) All values MUST be normalized to the image size in [0,1].
4) The box MUST tightly cover the tappable element (e.g., the whole "Continue" button).
5) NEVER return all zeros. Only return {"x":0,"y":0,"w":0,"h":0,"matched_text":""} if the target does not exist anywhere on screen.

Output format (ONLY this):
{"x":0.12,"y":0.34,"w":0.56,"h":0.08,"matched_text":"Continue"}`
}

// Wire types for generateContent.

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *geminiError `json:"error"`
}

func (wireResponse *geminiResponse) firstText() (string, bool) {
	if len(wireResponse.Candidates) == 0 {
		return "", false
	}
	parts := wireResponse.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", false
	}
	return parts[0].Text, true
}

type geminiError struct {
	Code    flexibleString `json:"code"`
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details []struct {
		Type       string `json:"@type"`
		RetryDelay string `json:"retryDelay"`
	} `json:"details"`
}

// retryInterval prefers the message hint, then a RetryInfo detail.
// Zero means no hint.
func (wireError *geminiError) retryInterval() time.Duration {
	if interval, ok := ParseRetryHint(wireError.Message); ok {
		return interval
	}
	for _, detail := range wireError.Details {
		if interval, ok := parseRetryDelay(detail.RetryDelay); ok {
			return interval
		}
	}
	return 0
}
