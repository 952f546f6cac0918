// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sagielster/DeviceLinkAssistant/lib/netutil"
	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
)

// CoachContext is what the user picked in the device-selection UI.
// Blank fields are omitted from the planner prompt.
type CoachContext struct {
	SelectedDevice   string `cbor:"1,keyasint,omitempty" yaml:"selected_device"`
	ExpectedAppName  string `cbor:"2,keyasint,omitempty" yaml:"expected_app_name"`
	ExpectedAppQuery string `cbor:"3,keyasint,omitempty" yaml:"expected_app_query"`
}

// ContextFromPrefs reads the coach context preference keys.
func ContextFromPrefs(store prefs.Store) CoachContext {
	return CoachContext{
		SelectedDevice:   store.Lookup(prefs.KeyCoachSelectedDevice),
		ExpectedAppName:  store.Lookup(prefs.KeyCoachExpectedAppName),
		ExpectedAppQuery: store.Lookup(prefs.KeyCoachExpectedAppQuery),
	}
}

// Planner decides the next setup step from a screenshot.
type Planner interface {
	// Plan returns one short imperative instruction. Errors include
	// ErrInsufficientQuota, ErrEmptyInstruction, ErrNetworkFailed,
	// ErrParseFailed, ErrMissingKey, and *ProviderError.
	Plan(ctx context.Context, screenshot *Image, coach CoachContext) (string, error)
}

// OpenAI planner defaults.
const (
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultPlannerMaxToken = 80
)

const plannerSystemPrompt = "You are an on-device UI setup coach. Use the screenshot. " +
	"Return ONLY a short instruction of what to tap next. No extra text."

// OpenAIPlannerConfig configures NewOpenAIPlanner. Zero fields take
// the defaults above.
type OpenAIPlannerConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Model      string
	MaxTokens  int

	// Keys provides openai_api_key, read on every call.
	Keys prefs.Store

	Logger *slog.Logger
}

// OpenAIPlanner implements Planner over Chat Completions.
type OpenAIPlanner struct {
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	keys       prefs.Store
	logger     *slog.Logger
}

// NewOpenAIPlanner returns a planner. Keys is required.
func NewOpenAIPlanner(config OpenAIPlannerConfig) *OpenAIPlanner {
	planner := &OpenAIPlanner{
		httpClient: config.HTTPClient,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		model:      config.Model,
		maxTokens:  config.MaxTokens,
		keys:       config.Keys,
		logger:     config.Logger,
	}
	if planner.httpClient == nil {
		planner.httpClient = netutil.NewClient(netutil.DefaultClientTimeouts)
	}
	if planner.baseURL == "" {
		planner.baseURL = DefaultOpenAIBaseURL
	}
	if planner.model == "" {
		planner.model = DefaultOpenAIModel
	}
	if planner.maxTokens <= 0 {
		planner.maxTokens = DefaultPlannerMaxToken
	}
	if planner.logger == nil {
		planner.logger = slog.Default()
	}
	return planner
}

// Plan implements Planner.
func (planner *OpenAIPlanner) Plan(ctx context.Context, screenshot *Image, coach CoachContext) (string, error) {
	apiKey := planner.keys.Lookup(prefs.KeyOpenAIAPIKey)
	if apiKey == "" {
		return "", fmt.Errorf("vision/openai: %w", ErrMissingKey)
	}

	call := apiCall{
		httpClient: planner.httpClient,
		endpoint:   planner.baseURL + "/chat/completions",
		headers:    map[string]string{"Authorization": "Bearer " + apiKey},
		prefix:     "vision/openai",
	}
	reply, err := call.post(ctx, planner.buildRequest(screenshot, coach))
	if err != nil {
		return "", err
	}
	planner.logger.Debug("planner response",
		"status", reply.statusCode,
		"body", netutil.Truncate(string(reply.body), 1200),
	)
	return planner.parseReply(reply)
}

func (planner *OpenAIPlanner) buildRequest(screenshot *Image, coach CoachContext) openaiRequest {
	userParts := []openaiContentPart{
		{Type: "text", Text: plannerUserText(coach)},
		{Type: "image_url", ImageURL: &openaiImageURL{URL: screenshot.DataURL()}},
	}
	userContent, _ := json.Marshal(userParts)
	systemContent, _ := json.Marshal(plannerSystemPrompt)
	return openaiRequest{
		Model: planner.model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemContent},
			{Role: "user", Content: userContent},
		},
		MaxTokens: planner.maxTokens,
	}
}

// plannerUserText is the goal text sent with the screenshot.
func plannerUserText(coach CoachContext) string {
	var builder strings.Builder
	builder.WriteString("Goal: continue smart home setup.\n")
	if coach.ExpectedAppName != "" {
		builder.WriteString("App: " + coach.ExpectedAppName + "\n")
	}
	if coach.ExpectedAppQuery != "" {
		builder.WriteString("App query: " + coach.ExpectedAppQuery + "\n")
	}
	if coach.SelectedDevice != "" {
		builder.WriteString("Device: " + coach.SelectedDevice + "\n")
	}
	builder.WriteString(`Return only something like: "Tap the + button" or "Tap Open" or "Tap Install".` + "\n")
	return builder.String()
}

func (planner *OpenAIPlanner) parseReply(reply replyBody) (string, error) {
	var wireResponse openaiResponse
	if err := json.Unmarshal(reply.body, &wireResponse); err != nil {
		if !reply.ok() {
			return "", &ProviderError{
				Provider:   "openai",
				StatusCode: reply.statusCode,
				Message:    netutil.Truncate(string(reply.body), 200),
			}
		}
		return "", fmt.Errorf("vision/openai: %w: %v", ErrParseFailed, err)
	}

	if wireError := wireResponse.Error; wireError != nil {
		if wireError.Code == "insufficient_quota" || wireError.Type == "insufficient_quota" {
			return "", fmt.Errorf("vision/openai: %w", ErrInsufficientQuota)
		}
		return "", &ProviderError{
			Provider:   "openai",
			StatusCode: reply.statusCode,
			Code:       string(wireError.Code),
			Type:       wireError.Type,
			Message:    wireError.Message,
		}
	}
	if !reply.ok() {
		return "", &ProviderError{
			Provider:   "openai",
			StatusCode: reply.statusCode,
			Message:    netutil.Truncate(string(reply.body), 200),
		}
	}

	if len(wireResponse.Choices) == 0 || wireResponse.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("vision/openai: %w: no choices", ErrParseFailed)
	}
	instruction := strings.TrimSpace(*wireResponse.Choices[0].Message.Content)
	if instruction == "" {
		return "", fmt.Errorf("vision/openai: %w", ErrEmptyInstruction)
	}
	return instruction, nil
}

// Wire types for Chat Completions.

type openaiRequest struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

// openaiMessage content is a string for system and a part array for
// user.
type openaiMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type openaiContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

type openaiImageURL struct {
	URL string `json:"url"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *openaiError `json:"error"`
}

type openaiError struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Code    flexibleString `json:"code"`
}
