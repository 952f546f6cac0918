// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import (
	"errors"
	"testing"
	"time"

	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
	"github.com/sagielster/DeviceLinkAssistant/lib/testutil"
	"github.com/sagielster/DeviceLinkAssistant/lib/vision"
)

func TestKeyword(t *testing.T) {
	tests := []struct {
		instruction string
		want        string
	}{
		{"Tap Continue", "Continue"},
		{`Tap "Get Started".`, "Started"},
		{"Open", "Open"},
		{"tap allow!", "allow"},
		{"  Tap 'Sign in'  ", "in"},
		{"Tap", "Tap"},
		{"Tap ...", ""},
		{"", ""},
		{"Tap Supercalifragilisticexpialidocious-and-then-some", "Supercalifragilisticexpialidocio"},
	}
	for _, test := range tests {
		if got := Keyword(test.instruction); got != test.want {
			t.Errorf("Keyword(%q) = %q, want %q", test.instruction, got, test.want)
		}
	}
}

func TestMatchesInstruction(t *testing.T) {
	tests := []struct {
		instruction, matched string
		want                 bool
	}{
		{"Tap Continue", "Continue", true},
		{"Tap Continue", "CONTINUE >", true},
		{"Tap Open", "Install", false},
		{`Tap "Get Started"`, "Get started", true},
		{"Tap ...", "anything", true},
		{"Tap Open", "", false},
	}
	for _, test := range tests {
		if got := MatchesInstruction(test.instruction, test.matched); got != test.want {
			t.Errorf("MatchesInstruction(%q, %q) = %v, want %v", test.instruction, test.matched, got, test.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	dp44, dp140 := testDisplay.DP(44), testDisplay.DP(140)
	tests := []struct {
		name string
		box  vision.Box
		want Target
	}{
		{"scenario box", vision.Box{X: 0.30, Y: 0.80, W: 0.40, H: 0.06}, Target{CX: 540, CY: 1992, Diameter: dp140}},
		{"tiny box grows to minimum", vision.Box{X: 0.5, Y: 0.5, W: 0.015625, H: 0.015625}, Target{CX: 548, CY: 1218, Diameter: dp44}},
		{"height dominates", vision.Box{X: 0, Y: 0, W: 0.125, H: 0.0625}, Target{CX: 67, CY: 75, Diameter: 150}},
		{"center clamped", vision.Box{X: 0.9, Y: 0.9, W: 0.5, H: 0.25}, Target{CX: 1080, CY: 2400, Diameter: dp140}},
		{"negative origin", vision.Box{X: -0.5, Y: -0.5, W: 0.25, H: 0.125}, Target{CX: 0, CY: 0, Diameter: 300}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Sanitize(test.box, testDisplay)
			if err != nil {
				t.Fatalf("Sanitize: %v", err)
			}
			if got != test.want {
				t.Errorf("Sanitize = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestSanitizeRejectsOversized(t *testing.T) {
	if _, err := Sanitize(vision.Box{W: MaxBoxWidth, H: MaxBoxHeight}, testDisplay); err != nil {
		t.Errorf("box at the limits rejected: %v", err)
	}
	for _, box := range []vision.Box{
		{X: 0.1, Y: 0.4, W: 0.70, H: 0.20},
		{X: 0.1, Y: 0.1, W: 0.20, H: 0.50},
	} {
		if _, err := Sanitize(box, testDisplay); !errors.Is(err, ErrOversizedBox) {
			t.Errorf("Sanitize(%+v) err = %v, want ErrOversizedBox", box, err)
		}
	}
}

func TestPhaseMessages(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{Idle(), "Coach mode is idle."},
		{RequestingCapture(), "Requesting screen capture permission…"},
		{Starting(), "Starting screen capture…"},
		{Scanning(), "Scanning the screen for the next setup step…"},
		{Candidate("locating:Tap Open"), `Found "locating:Tap Open". Verifying…`},
		{Locked("Tap Continue@540,1992"), `Tap "Tap Continue@540,1992" to continue.`},
		{Lost(), "Lost the target. Rescanning…"},
		{Errored("OpenAI quota exceeded"), "Coach error: OpenAI quota exceeded"},
	}
	for _, test := range tests {
		if got := test.phase.Message(); got != test.want {
			t.Errorf("%v.Message() = %q, want %q", test.phase, got, test.want)
		}
	}
	if got := Locked("x").String(); got != "locked(x)" {
		t.Errorf("String = %q", got)
	}
	if got := Kind(99).String(); got != "kind(99)" {
		t.Errorf("unknown kind = %q", got)
	}
}

func TestBusIdempotentUpdates(t *testing.T) {
	bus := NewBus()
	bus.Publish(Scanning())
	bus.SetHint("Scanning…")
	revision := bus.Snapshot().Revision

	bus.Publish(Scanning())
	bus.SetHint("Scanning…")
	bus.SetRunning(false)
	if got := bus.Snapshot().Revision; got != revision {
		t.Errorf("revision moved from %d to %d on unchanged values", revision, got)
	}

	bus.SetRunning(true)
	bus.Reset(Idle())
	state := bus.Snapshot()
	if state.Phase != Idle() || state.Hint != "" || state.Running {
		t.Errorf("state after Reset = %+v", state)
	}
}

func TestBusSubscribeLatestWins(t *testing.T) {
	bus := NewBus()
	updates, unsubscribe := bus.Subscribe()

	primed := testutil.RequireReceive(t, updates, time.Second, "primed state")
	if primed.Phase != Idle() {
		t.Errorf("primed phase = %v", primed.Phase)
	}

	// Nobody reads while three updates land: only the last survives.
	bus.Publish(Starting())
	bus.Publish(Scanning())
	bus.Publish(Locked("Tap Continue@540,1992"))
	latest := testutil.RequireReceive(t, updates, time.Second, "latest state")
	if latest.Phase != Locked("Tap Continue@540,1992") || latest.Revision != 3 {
		t.Errorf("latest = %+v", latest)
	}
	select {
	case extra := <-updates:
		t.Errorf("stale state delivered: %+v", extra)
	default:
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-updates; ok {
		t.Error("channel open after unsubscribe")
	}
	bus.Publish(Idle())
}

func TestCredentialsCheck(t *testing.T) {
	tests := []struct {
		name       string
		values     map[string]string
		wantOK     bool
		wantDetail string
	}{
		{"both", map[string]string{prefs.KeyOpenAIAPIKey: "a", prefs.KeyGeminiAPIKey: "b"}, true, ""},
		{"neither", nil, false, "missing OpenAI key"},
		{"no gemini", map[string]string{prefs.KeyOpenAIAPIKey: "a"}, false, "missing Gemini key"},
		{"no openai", map[string]string{prefs.KeyGeminiAPIKey: "b"}, false, "missing OpenAI key"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			missing, ok := readCredentials(prefs.NewMemory(test.values)).check()
			if ok != test.wantOK || missing.detail != test.wantDetail {
				t.Errorf("check = %+v, %v", missing, ok)
			}
		})
	}
}

func TestDefaultSettingsValidate(t *testing.T) {
	if err := validate.Struct(DefaultSettings()); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	settings := DefaultSettings()
	settings.JPEGQuality = 5
	if err := validate.Struct(settings); err == nil {
		t.Error("quality 5 accepted")
	}
	settings = DefaultSettings()
	settings.Timing.StepGap = 0
	if err := validate.Struct(settings); err == nil {
		t.Error("zero step gap accepted")
	}
}
