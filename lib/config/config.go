// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sagielster/DeviceLinkAssistant/lib/coach"
	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
	"github.com/sagielster/DeviceLinkAssistant/lib/netutil"
	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
	"github.com/sagielster/DeviceLinkAssistant/lib/vision"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "COACH_CONFIG"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the coach configuration.
type Config struct {
	// Display is the screen the overlay covers. Capture frames are
	// derived from it.
	Display frame.Display `yaml:"display"`

	// Coach tunes the controller: timings, worker count, JPEG quality.
	Coach coach.Settings `yaml:"coach"`

	// OpenAI configures the planner endpoint.
	OpenAI OpenAIConfig `yaml:"openai"`

	// Gemini configures the locator endpoint. The model is a
	// preference, not configuration.
	Gemini GeminiConfig `yaml:"gemini"`

	// HTTP bounds every model request.
	HTTP netutil.ClientTimeouts `yaml:"http"`

	// Prefs is the path of the preferences file holding API keys and
	// the coach context. Empty means the command line must supply one.
	Prefs string `yaml:"prefs"`
}

// OpenAIConfig configures the planner.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	Model     string `yaml:"model" validate:"required"`
	MaxTokens int    `yaml:"max_tokens" validate:"gt=0"`
}

// GeminiConfig configures the locator.
type GeminiConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	MaxTokens int    `yaml:"max_tokens" validate:"gt=0"`
}

// Default returns the production configuration for a 1080×2400 phone
// at 2.75 density.
func Default() *Config {
	return &Config{
		Display: frame.Display{Width: 1080, Height: 2400, Density: 2.75},
		Coach:   coach.DefaultSettings(),
		OpenAI: OpenAIConfig{
			BaseURL:   vision.DefaultOpenAIBaseURL,
			Model:     vision.DefaultOpenAIModel,
			MaxTokens: vision.DefaultPlannerMaxToken,
		},
		Gemini: GeminiConfig{
			BaseURL:   vision.DefaultGeminiBaseURL,
			MaxTokens: vision.DefaultLocatorMaxTokens,
		},
		HTTP: netutil.DefaultClientTimeouts,
	}
}

// Load loads the file named by COACH_CONFIG. There is no fallback: an
// unset variable is an error.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your coach.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile reads, parses, and validates the file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse merges YAML data over Default, expands variables, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	cfg.Prefs = expandVars(cfg.Prefs, map[string]string{"HOME": os.Getenv("HOME")})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PlannerConfig is the OpenAI planner configuration for this file.
// Keys come from the preference store.
func (c *Config) PlannerConfig(keys prefs.Store) vision.OpenAIPlannerConfig {
	return vision.OpenAIPlannerConfig{
		HTTPClient: netutil.NewClient(c.HTTP),
		BaseURL:    c.OpenAI.BaseURL,
		Model:      c.OpenAI.Model,
		MaxTokens:  c.OpenAI.MaxTokens,
		Keys:       keys,
	}
}

// LocatorConfig is the Gemini locator configuration for this file.
func (c *Config) LocatorConfig(keys prefs.Store) vision.GeminiLocatorConfig {
	return vision.GeminiLocatorConfig{
		HTTPClient: netutil.NewClient(c.HTTP),
		BaseURL:    c.Gemini.BaseURL,
		MaxTokens:  c.Gemini.MaxTokens,
		Keys:       keys,
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}
