// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/sagielster/DeviceLinkAssistant/lib/clock"
	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
)

// DefaultInterval is the Sequence frame period.
const DefaultInterval = 500 * time.Millisecond

// imageExtensions are the file types a Sequence picks up.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

// SequenceConfig configures NewSequence.
type SequenceConfig struct {
	// Dir holds the screenshots, replayed in lexical file-name order.
	Dir string

	// Display is the screen the screenshots came from. Frames are
	// downscaled to frame.CaptureSize(Display).
	Display frame.Display

	// Interval between frames. Zero means DefaultInterval.
	Interval time.Duration

	// Loop restarts from the first file after the last.
	Loop bool

	Pool   *frame.Pool
	Clock  clock.Clock
	Logger *slog.Logger
}

// Sequence is a Source replaying image files on a ticker.
type Sequence struct {
	config SequenceConfig
	width  int
	height int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSequence returns an unstarted Sequence.
func NewSequence(config SequenceConfig) *Sequence {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	width, height := frame.CaptureSize(config.Display)
	return &Sequence{config: config, width: width, height: height}
}

// Done is closed when delivery ends: the last file was sent without
// Loop, the context was cancelled, or Stop was called. Nil before
// Start. Each Start replaces it.
func (sequence *Sequence) Done() <-chan struct{} {
	sequence.mu.Lock()
	defer sequence.mu.Unlock()
	return sequence.done
}

// Start implements Source. Frames are delivered one per Interval
// starting one Interval after Start.
func (sequence *Sequence) Start(ctx context.Context, handler Handler) error {
	paths, err := ListFrames(sequence.config.Dir)
	if err != nil {
		return err
	}

	sequence.mu.Lock()
	defer sequence.mu.Unlock()
	if sequence.running() {
		return fmt.Errorf("capture: sequence already started")
	}
	if sequence.cancel != nil {
		sequence.cancel()
	}
	runContext, cancel := context.WithCancel(ctx)
	sequence.cancel = cancel
	sequence.done = make(chan struct{})

	ticker := sequence.config.Clock.NewTicker(sequence.config.Interval)
	go sequence.run(runContext, ticker, handler, paths, sequence.done)

	sequence.config.Logger.Info("frame sequence started",
		"dir", sequence.config.Dir,
		"frames", len(paths),
		"capture_width", sequence.width,
		"capture_height", sequence.height,
		"loop", sequence.config.Loop,
	)
	return nil
}

// Stop implements Source.
func (sequence *Sequence) Stop() error {
	sequence.mu.Lock()
	cancel, done := sequence.cancel, sequence.done
	sequence.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	sequence.mu.Lock()
	if sequence.done == done {
		sequence.cancel = nil
	}
	sequence.mu.Unlock()
	return nil
}

// running reports whether a delivery goroutine is live. Caller holds mu.
func (sequence *Sequence) running() bool {
	if sequence.done == nil {
		return false
	}
	select {
	case <-sequence.done:
		return false
	default:
		return true
	}
}

func (sequence *Sequence) run(ctx context.Context, ticker *clock.Ticker, handler Handler, paths []string, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	delivered := 0
	for index := 0; ; index++ {
		if index == len(paths) {
			if delivered == 0 {
				handler.HandleFatal(fmt.Errorf("%w: no file in %s decoded", ErrNoFrames, sequence.config.Dir))
				return
			}
			if !sequence.config.Loop {
				return
			}
			index = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		captured, err := sequence.load(paths[index])
		if err != nil {
			sequence.config.Logger.Warn("skipping undecodable frame", "path", paths[index], "error", err)
			continue
		}
		delivered++
		handler.HandleFrame(captured)
	}
}

func (sequence *Sequence) load(path string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoded, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return frame.Scale(sequence.config.Pool, decoded, sequence.width, sequence.height), nil
}

// ListFrames returns the image files in dir sorted by name. Returns
// ErrNoFrames when there are none.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("capture: reading frame directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}
	slices.Sort(paths)
	return paths, nil
}
