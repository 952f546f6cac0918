// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sagielster/DeviceLinkAssistant/lib/clock"
	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
	"github.com/sagielster/DeviceLinkAssistant/lib/testutil"
)

var testDisplay = frame.Display{Width: 1080, Height: 2400, Density: 2.75}

// channelHandler forwards deliveries to channels.
type channelHandler struct {
	frames chan *frame.Frame
	fatal  chan error
}

func newChannelHandler() *channelHandler {
	return &channelHandler{
		frames: make(chan *frame.Frame, 16),
		fatal:  make(chan error, 1),
	}
}

func (handler *channelHandler) HandleFrame(captured *frame.Frame) { handler.frames <- captured }
func (handler *channelHandler) HandleFatal(err error)             { handler.fatal <- err }

func writePNG(t *testing.T, path string, shade uint8) {
	t.Helper()
	pixels := image.NewRGBA(image.Rect(0, 0, 1080, 2400))
	for index := 0; index < len(pixels.Pix); index += 4 {
		pixels.Pix[index] = shade
		pixels.Pix[index+1] = shade
		pixels.Pix[index+2] = shade
		pixels.Pix[index+3] = 255
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, pixels); err != nil {
		t.Fatal(err)
	}
}

func shadeOf(captured *frame.Frame) uint8 {
	return captured.Image().RGBAAt(captured.Width()/2, captured.Height()/2).R
}

func TestListFrames(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 10)
	writePNG(t, filepath.Join(dir, "a.PNG"), 20)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := ListFrames(dir)
	if err != nil {
		t.Fatalf("ListFrames: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "a.PNG" || filepath.Base(paths[1]) != "b.png" {
		t.Errorf("paths = %v", paths)
	}
}

func TestSequenceEmptyDirIsFatalStart(t *testing.T) {
	sequence := NewSequence(SequenceConfig{Dir: t.TempDir(), Display: testDisplay})
	if err := sequence.Start(context.Background(), newChannelHandler()); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("Start err = %v, want ErrNoFrames", err)
	}
	if err := sequence.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestSequenceDeliversInOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "001.png"), 40)
	writePNG(t, filepath.Join(dir, "002.png"), 80)
	if err := os.WriteFile(filepath.Join(dir, "003.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := clock.Fake(time.Unix(0, 0))
	handler := newChannelHandler()
	sequence := NewSequence(SequenceConfig{
		Dir:      dir,
		Display:  testDisplay,
		Interval: time.Second,
		Clock:    fake,
		Pool:     &frame.Pool{},
	})
	if err := sequence.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sequence.Stop()

	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	first := testutil.RequireReceive(t, handler.frames, 5*time.Second, "first frame")
	if first.Width() != 540 || first.Height() != 1200 {
		t.Errorf("frame size = %dx%d, want 540x1200", first.Width(), first.Height())
	}
	if got := shadeOf(first); got != 40 {
		t.Errorf("first shade = %d, want 40", got)
	}
	first.Release()

	fake.Advance(time.Second)
	second := testutil.RequireReceive(t, handler.frames, 5*time.Second, "second frame")
	if got := shadeOf(second); got != 80 {
		t.Errorf("second shade = %d, want 80", got)
	}
	second.Release()

	// The third file fails to decode and the sequence does not loop.
	fake.Advance(time.Second)
	testutil.RequireClosed(t, sequence.Done(), 5*time.Second, "sequence end")
	select {
	case extra := <-handler.frames:
		t.Errorf("unexpected frame with shade %d", shadeOf(extra))
	default:
	}
}

func TestSequenceLoops(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), 99)

	fake := clock.Fake(time.Unix(0, 0))
	handler := newChannelHandler()
	sequence := NewSequence(SequenceConfig{Dir: dir, Display: testDisplay, Interval: time.Second, Clock: fake, Loop: true})
	if err := sequence.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	fake.WaitForTimers(1)
	for range 3 {
		fake.Advance(time.Second)
		testutil.RequireReceive(t, handler.frames, 5*time.Second, "looped frame").Release()
	}

	if err := sequence.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	testutil.RequireClosed(t, sequence.Done(), time.Second, "done after Stop")
	if err := sequence.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestSequenceRestartAfterStop(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), 60)

	fake := clock.Fake(time.Unix(0, 0))
	handler := newChannelHandler()
	sequence := NewSequence(SequenceConfig{Dir: dir, Display: testDisplay, Interval: time.Second, Clock: fake, Loop: true})

	for round := range 2 {
		if err := sequence.Start(context.Background(), handler); err != nil {
			t.Fatalf("Start (round %d): %v", round, err)
		}
		if err := sequence.Start(context.Background(), handler); err == nil {
			t.Errorf("second Start while running succeeded (round %d)", round)
		}

		fake.WaitForTimers(1)
		fake.Advance(time.Second)
		testutil.RequireReceive(t, handler.frames, 5*time.Second, "frame in round %d", round).Release()

		done := sequence.Done()
		if err := sequence.Stop(); err != nil {
			t.Fatalf("Stop (round %d): %v", round, err)
		}
		testutil.RequireClosed(t, done, time.Second, "done after Stop in round %d", round)
	}
}

func TestSequenceRestartAfterEnd(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), 60)

	fake := clock.Fake(time.Unix(0, 0))
	handler := newChannelHandler()
	sequence := NewSequence(SequenceConfig{Dir: dir, Display: testDisplay, Interval: time.Second, Clock: fake})

	for round := range 2 {
		if err := sequence.Start(context.Background(), handler); err != nil {
			t.Fatalf("Start (round %d): %v", round, err)
		}
		fake.WaitForTimers(1)
		fake.Advance(time.Second)
		testutil.RequireReceive(t, handler.frames, 5*time.Second, "frame in round %d", round).Release()
		testutil.RequireClosed(t, sequence.Done(), 5*time.Second, "sequence end in round %d", round)
	}
	if err := sequence.Stop(); err != nil {
		t.Errorf("Stop after end: %v", err)
	}
}

func TestSequenceNothingDecodable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := clock.Fake(time.Unix(0, 0))
	handler := newChannelHandler()
	sequence := NewSequence(SequenceConfig{Dir: dir, Display: testDisplay, Interval: time.Second, Clock: fake})
	if err := sequence.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sequence.Stop()

	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	err := testutil.RequireReceive(t, handler.fatal, 5*time.Second, "fatal")
	if !errors.Is(err, ErrNoFrames) {
		t.Errorf("fatal = %v, want ErrNoFrames", err)
	}
}

func TestFeed(t *testing.T) {
	feed := NewFeed(testDisplay, nil)
	pixels := image.NewRGBA(image.Rect(0, 0, 1080, 2400))
	pixels.SetRGBA(540, 1200, color.RGBA{R: 1, A: 255})

	if err := feed.Push(pixels); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Push before Start = %v, want ErrNotStarted", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := newChannelHandler()
	if err := feed.Start(ctx, handler); err != nil {
		t.Fatal(err)
	}
	if err := feed.Push(pixels); err != nil {
		t.Fatalf("Push: %v", err)
	}
	captured := testutil.RequireReceive(t, handler.frames, time.Second, "pushed frame")
	if width, height := feed.Size(); captured.Width() != width || captured.Height() != height {
		t.Errorf("frame %dx%d, feed size %dx%d", captured.Width(), captured.Height(), width, height)
	}

	feed.Fail(errors.New("projection revoked"))
	if err := testutil.RequireReceive(t, handler.fatal, time.Second, "fatal"); err.Error() != "projection revoked" {
		t.Errorf("fatal = %v", err)
	}
	if err := feed.Push(pixels); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Push after Fail = %v, want ErrNotStarted", err)
	}
}
