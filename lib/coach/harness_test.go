// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sagielster/DeviceLinkAssistant/lib/capture"
	"github.com/sagielster/DeviceLinkAssistant/lib/clock"
	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
	"github.com/sagielster/DeviceLinkAssistant/lib/vision"
)

var testDisplay = frame.Display{Width: 1080, Height: 2400, Density: 2.75}

// recordingSurface logs every surface call as a string.
type recordingSurface struct {
	mu        sync.Mutex
	calls     []string
	attachErr error
}

func (surface *recordingSurface) record(call string) {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	surface.calls = append(surface.calls, call)
}

func (surface *recordingSurface) Attach() error {
	surface.record("attach")
	return surface.attachErr
}
func (surface *recordingSurface) PlaceRing(left, top, size int) {
	surface.record(fmt.Sprintf("ring %d,%d %d", left, top, size))
}
func (surface *recordingSurface) HideRing()                 { surface.record("hide") }
func (surface *recordingSurface) SetStatusText(text string) { surface.record("status " + text) }
func (surface *recordingSurface) Close() error {
	surface.record("close")
	return nil
}

func (surface *recordingSurface) snapshot() []string {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	return append([]string(nil), surface.calls...)
}

// ringShowing reports whether the last ring call was a placement.
func (surface *recordingSurface) ringShowing() (string, bool) {
	calls := surface.snapshot()
	for index := len(calls) - 1; index >= 0; index-- {
		switch {
		case calls[index] == "hide":
			return "", false
		case strings.HasPrefix(calls[index], "ring "):
			return calls[index], true
		}
	}
	return "", false
}

type planReply struct {
	instruction string
	err         error
}

// scriptedPlanner answers from a list; the last reply repeats. A
// non-nil gate blocks each call until it is closed or receives.
type scriptedPlanner struct {
	mu       sync.Mutex
	replies  []planReply
	contexts []vision.CoachContext
	gate     chan struct{}
}

func (planner *scriptedPlanner) Plan(ctx context.Context, screenshot *vision.Image, coach vision.CoachContext) (string, error) {
	planner.mu.Lock()
	call := len(planner.contexts)
	planner.contexts = append(planner.contexts, coach)
	reply := planner.replies[min(call, len(planner.replies)-1)]
	gate := planner.gate
	planner.mu.Unlock()

	if screenshot == nil || screenshot.Base64 == "" {
		return "", fmt.Errorf("planner got no screenshot")
	}
	if gate != nil {
		<-gate
	}
	return reply.instruction, reply.err
}

func (planner *scriptedPlanner) calls() int {
	planner.mu.Lock()
	defer planner.mu.Unlock()
	return len(planner.contexts)
}

func (planner *scriptedPlanner) lastContext() vision.CoachContext {
	planner.mu.Lock()
	defer planner.mu.Unlock()
	return planner.contexts[len(planner.contexts)-1]
}

type locateReply struct {
	located vision.Located
	err     error
}

type scriptedLocator struct {
	mu           sync.Mutex
	replies      []locateReply
	instructions []string
}

func (locator *scriptedLocator) Locate(ctx context.Context, screenshot *vision.Image, instruction string) (vision.Located, error) {
	locator.mu.Lock()
	defer locator.mu.Unlock()
	call := len(locator.instructions)
	locator.instructions = append(locator.instructions, instruction)
	reply := locator.replies[min(call, len(locator.replies)-1)]
	return reply.located, reply.err
}

func (locator *scriptedLocator) calls() int {
	locator.mu.Lock()
	defer locator.mu.Unlock()
	return len(locator.instructions)
}

func located(x, y, w, h float64, matched string) locateReply {
	return locateReply{located: vision.Located{Box: vision.Box{X: x, Y: y, W: w, H: h}, MatchedText: matched}}
}

// harness wires a Controller to a Feed source, a recording surface, and
// a fake clock.
type harness struct {
	t          *testing.T
	clock      *clock.FakeClock
	feed       *capture.Feed
	surface    *recordingSurface
	prefs      *prefs.Memory
	controller *Controller
}

type harnessOption func(*Options)

func withSettings(mutate func(*Settings)) harnessOption {
	return func(options *Options) { mutate(&options.Settings) }
}

func withSource(source capture.Source) harnessOption {
	return func(options *Options) { options.Source = source }
}

func newHarness(t *testing.T, planner vision.Planner, locator vision.Locator, options ...harnessOption) *harness {
	t.Helper()
	fake := clock.Fake(time.Unix(1_700_000_000, 0))
	h := &harness{
		t:       t,
		clock:   fake,
		feed:    capture.NewFeed(testDisplay, &frame.Pool{}),
		surface: &recordingSurface{},
		prefs: prefs.NewMemory(map[string]string{
			prefs.KeyOpenAIAPIKey:         "sk-test",
			prefs.KeyGeminiAPIKey:         "g-test",
			prefs.KeyCoachSelectedDevice:  "Kasa Smart Plug",
			prefs.KeyCoachExpectedAppName: "Kasa",
		}),
	}
	controllerOptions := Options{
		Settings: DefaultSettings(),
		Display:  testDisplay,
		Source:   h.feed,
		Surface:  h.surface,
		Planner:  planner,
		Locator:  locator,
		Prefs:    h.prefs,
		Clock:    fake,
	}
	for _, option := range options {
		option(&controllerOptions)
	}
	controller, err := New(controllerOptions)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.controller = controller
	t.Cleanup(func() { controller.Close() })
	return h
}

func (h *harness) start() {
	h.t.Helper()
	if err := h.controller.Start(context.Background()); err != nil {
		h.t.Fatalf("Start: %v", err)
	}
	h.controller.Settle()
}

// push delivers a uniform frame and waits for any analysis it caused.
// Signatures of uniform frames are 30,000 per shade step.
func (h *harness) push(shade uint8) {
	h.t.Helper()
	h.feedUniform(shade)
	h.controller.Settle()
}

func (h *harness) advance(d time.Duration) { h.clock.Advance(d) }

func (h *harness) state() State { return h.controller.Bus().Snapshot() }

func (h *harness) requirePhase(want Phase) {
	h.t.Helper()
	if got := h.state().Phase; got != want {
		h.t.Fatalf("phase = %v, want %v", got, want)
	}
}

func (h *harness) requireHint(want string) {
	h.t.Helper()
	if got := h.state().Hint; got != want {
		h.t.Fatalf("hint = %q, want %q", got, want)
	}
}

// feedUniform delivers a uniform frame without waiting for analyses.
func (h *harness) feedUniform(shade uint8) {
	h.t.Helper()
	width, height := h.feed.Size()
	pixels := image.NewRGBA(image.Rect(0, 0, width, height))
	for index := 0; index < len(pixels.Pix); index += 4 {
		pixels.Pix[index] = shade
		pixels.Pix[index+1] = shade
		pixels.Pix[index+2] = shade
		pixels.Pix[index+3] = 255
	}
	if err := h.feed.Push(pixels); err != nil {
		h.t.Fatalf("Push: %v", err)
	}
}
