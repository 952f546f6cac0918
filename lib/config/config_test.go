// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
	"github.com/sagielster/DeviceLinkAssistant/lib/vision"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Coach.Timing.StepGap != 350*time.Millisecond {
		t.Errorf("expected step_gap=350ms, got %v", cfg.Coach.Timing.StepGap)
	}
	if cfg.Coach.Timing.ChangeThreshold != 900_000 {
		t.Errorf("expected change_threshold=900000, got %d", cfg.Coach.Timing.ChangeThreshold)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("expected openai model gpt-4o-mini, got %s", cfg.OpenAI.Model)
	}
	if cfg.HTTP.Connect != 20*time.Second || cfg.HTTP.Read != 30*time.Second {
		t.Errorf("expected 20s/30s HTTP timeouts, got %+v", cfg.HTTP)
	}
}

func TestLoad_RequiresCoachConfig(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when COACH_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "COACH_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithCoachConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "coach.yaml")
	configContent := `
display:
  width: 1440
  height: 3120
  density: 3.5
coach:
  timing:
    cooldown: 1200ms
    no_lock_retry: 10s
  workers: 3
openai:
  base_url: http://127.0.0.1:8080/v1
http:
  read: 45s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Display.Width != 1440 || cfg.Display.Density != 3.5 {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Coach.Timing.Cooldown != 1200*time.Millisecond {
		t.Errorf("expected cooldown=1.2s, got %v", cfg.Coach.Timing.Cooldown)
	}
	if cfg.Coach.Timing.NoLockRetry != 10*time.Second {
		t.Errorf("expected no_lock_retry=10s, got %v", cfg.Coach.Timing.NoLockRetry)
	}
	// Omitted fields keep their defaults.
	if cfg.Coach.Timing.StepGap != 350*time.Millisecond {
		t.Errorf("expected step_gap default, got %v", cfg.Coach.Timing.StepGap)
	}
	if cfg.Coach.Workers != 3 {
		t.Errorf("expected workers=3, got %d", cfg.Coach.Workers)
	}
	if cfg.OpenAI.BaseURL != "http://127.0.0.1:8080/v1" || cfg.OpenAI.Model != vision.DefaultOpenAIModel {
		t.Errorf("openai = %+v", cfg.OpenAI)
	}
	if cfg.HTTP.Read != 45*time.Second || cfg.HTTP.Connect != 20*time.Second {
		t.Errorf("http = %+v", cfg.HTTP)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestParse_EmptyIsDefault(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("empty file differs from Default: %+v", cfg)
	}
}

func TestParse_ExpandsPrefsPath(t *testing.T) {
	t.Setenv("HOME", "/home/coach")
	t.Setenv("COACH_PREFS_DIR", "")

	tests := []struct {
		input string
		want  string
	}{
		{"prefs: ${HOME}/prefs.yaml", "/home/coach/prefs.yaml"},
		{"prefs: ${COACH_PREFS_DIR:-/etc/coach}/prefs.yaml", "/etc/coach/prefs.yaml"},
		{"prefs: /absolute/prefs.yaml", "/absolute/prefs.yaml"},
	}
	for _, test := range tests {
		cfg, err := Parse([]byte(test.input))
		if err != nil {
			t.Fatalf("Parse(%q): %v", test.input, err)
		}
		if cfg.Prefs != test.want {
			t.Errorf("Parse(%q).Prefs = %q, want %q", test.input, cfg.Prefs, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"zero width", "display: {width: 0}", "Width"},
		{"negative density", "display: {density: -1}", "Density"},
		{"no workers", "coach: {workers: 0}", "Workers"},
		{"too many workers", "coach: {workers: 9}", "Workers"},
		{"low quality", "coach: {jpeg_quality: 5}", "JPEGQuality"},
		{"zero step gap", "coach: {timing: {step_gap: 0s}}", "StepGap"},
		{"bad url", "openai: {base_url: not a url}", "BaseURL"},
		{"no model", "openai: {model: \"\"}", "Model"},
		{"zero locator tokens", "gemini: {max_tokens: 0}", "MaxTokens"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.input))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %s", err, test.wantErr)
			}
		})
	}
}

func TestParse_RejectsMalformed(t *testing.T) {
	if _, err := Parse([]byte("coach: [")); err == nil {
		t.Error("malformed YAML accepted")
	}
	if _, err := Parse([]byte("coach: {timing: {cooldown: soon}}")); err == nil {
		t.Error("malformed duration accepted")
	}
}

func TestClientConfigs(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.BaseURL = "http://planner.test/v1"
	cfg.Gemini.MaxTokens = 64
	store := prefs.NewMemory(nil)

	planner := cfg.PlannerConfig(store)
	if planner.BaseURL != "http://planner.test/v1" || planner.Model != vision.DefaultOpenAIModel || planner.HTTPClient == nil {
		t.Errorf("planner config = %+v", planner)
	}
	locator := cfg.LocatorConfig(store)
	if locator.MaxTokens != 64 || locator.BaseURL != vision.DefaultGeminiBaseURL || locator.HTTPClient == nil {
		t.Errorf("locator config = %+v", locator)
	}
	if planner.HTTPClient.Timeout != 50*time.Second {
		t.Errorf("client timeout = %v, want connect+read", planner.HTTPClient.Timeout)
	}
}
