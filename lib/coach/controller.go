// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sagielster/DeviceLinkAssistant/lib/capture"
	"github.com/sagielster/DeviceLinkAssistant/lib/clock"
	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
	"github.com/sagielster/DeviceLinkAssistant/lib/overlay"
	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
	"github.com/sagielster/DeviceLinkAssistant/lib/vision"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("coach: controller closed")

// instructionRunes bounds the instruction text in status lines and
// phase labels.
const instructionRunes = 60

// Options wires a Controller.
type Options struct {
	Settings Settings      `validate:"required"`
	Display  frame.Display `validate:"required"`

	Source  capture.Source  `validate:"required"`
	Surface overlay.Surface `validate:"required"`
	Planner vision.Planner  `validate:"required"`
	Locator vision.Locator  `validate:"required"`
	Prefs   prefs.Store     `validate:"required"`

	// Bus receives phase updates. Nil means a new bus.
	Bus *Bus

	// Clock drives every timing decision. Nil means the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// Lock is the target currently shown.
type Lock struct {
	Target      Target
	Instruction string
	At          time.Time
}

// Controller is the coach loop. It implements capture.Handler.
type Controller struct {
	settings Settings
	display  frame.Display
	source   capture.Source
	planner  vision.Planner
	locator  vision.Locator
	prefs    prefs.Store
	bus      *Bus
	clock    clock.Clock
	logger   *slog.Logger

	// renderer is touched only from dispatcher tasks.
	renderer   *overlay.Renderer
	dispatcher *overlay.Dispatcher
	workers    *workerPool
	slot       frame.Slot

	// mu guards session and the scheduling fields inside it. It is
	// never held across I/O.
	mu      sync.Mutex
	session *session
	closed  bool
}

// session is the state of one Start..Stop run.
type session struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	limiter *rate.Limiter

	// inFlight serializes analyses within the session.
	inFlight atomic.Bool

	coach           vision.CoachContext
	quotaHalted     bool
	didInitial      bool
	lastSignature   uint64
	lastAnalysis    time.Time
	lock            *Lock
	holdInstruction string
	holdUntil       time.Time
}

// analysis is one dispatched unit of work. It owns frame.
type analysis struct {
	session     *session
	frame       *frame.Frame
	coach       vision.CoachContext
	trigger     string
	fingerprint string
}

// New validates options and returns a stopped Controller. The UI
// dispatcher starts immediately; call Close to release it.
func New(options Options) (*Controller, error) {
	if err := validate.Struct(options); err != nil {
		return nil, fmt.Errorf("coach: invalid options: %w", err)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	bus := options.Bus
	if bus == nil {
		bus = NewBus()
	}
	return &Controller{
		settings:   options.Settings,
		display:    options.Display,
		source:     options.Source,
		planner:    options.Planner,
		locator:    options.Locator,
		prefs:      options.Prefs,
		bus:        bus,
		clock:      clk,
		logger:     logger,
		renderer:   overlay.NewRenderer(options.Surface, options.Display, logger),
		dispatcher: overlay.NewDispatcher(logger),
		workers:    newWorkerPool(options.Settings.Workers),
	}, nil
}

// Bus returns the state bus.
func (controller *Controller) Bus() *Bus { return controller.bus }

// CurrentLock returns the locked target, if any.
func (controller *Controller) CurrentLock() (Lock, bool) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.session == nil || controller.session.lock == nil {
		return Lock{}, false
	}
	return *controller.session.lock, true
}

// Running reports whether a session is active.
func (controller *Controller) Running() bool {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.session != nil
}

// Start requests capture consent if the source needs it, attaches the
// overlay, and starts the source. The coach context is read from
// preferences. Starting a running controller is a no-op. On failure the
// bus is left in Error and the controller is stopped.
func (controller *Controller) Start(ctx context.Context) error {
	controller.mu.Lock()
	if controller.closed {
		controller.mu.Unlock()
		return ErrClosed
	}
	if controller.session != nil {
		controller.mu.Unlock()
		return nil
	}
	sessionContext, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	current := &session{
		id:      id,
		ctx:     sessionContext,
		cancel:  cancel,
		logger:  controller.logger.With("session", id),
		limiter: rate.NewLimiter(rate.Every(controller.settings.Timing.StepGap), 1),
		coach:   vision.ContextFromPrefs(controller.prefs),
	}
	controller.session = current
	controller.mu.Unlock()

	current.logger.Info("coach starting",
		"device", current.coach.SelectedDevice,
		"app", current.coach.ExpectedAppName,
	)

	if requester, ok := controller.source.(capture.Requester); ok {
		controller.post(current, func() { controller.publish(RequestingCapture()) })
		if err := requester.Request(sessionContext); err != nil {
			controller.fail(current, "Screen share canceled.", "screen capture permission denied")
			return fmt.Errorf("coach: requesting capture: %w", err)
		}
	}

	controller.post(current, func() {
		controller.bus.SetRunning(true)
		controller.setStatus("Coach started.")
		controller.publish(Starting())
	})

	attached := make(chan error, 1)
	if !controller.dispatcher.Post(func() { attached <- controller.renderer.Attach() }) {
		controller.endSession(current)
		return ErrClosed
	}
	if err := <-attached; err != nil {
		current.logger.Error("overlay unavailable", "error", err)
		controller.fail(current, "Overlay permission missing.", "overlay permission missing")
		return fmt.Errorf("coach: %w", err)
	}

	controller.post(current, func() {
		controller.setStatus("Scanning…")
		controller.publish(Scanning())
	})

	if err := controller.source.Start(sessionContext, controller); err != nil {
		current.logger.Error("capture failed to start", "error", err)
		controller.fail(current, "Screen capture init failed: "+err.Error(), "capture: "+err.Error())
		return fmt.Errorf("coach: starting capture: %w", err)
	}
	current.logger.Info("coach started")
	return nil
}

// Stop halts the source, cancels in-flight requests, hides the overlay,
// releases the stored frame, and resets the bus to Idle. Results of an
// analysis still unwinding are discarded. Idempotent.
func (controller *Controller) Stop() error {
	controller.mu.Lock()
	current := controller.session
	controller.mu.Unlock()
	if current == nil || !controller.endSession(current) {
		return nil
	}

	var stopErr error
	if err := controller.source.Stop(); err != nil {
		stopErr = fmt.Errorf("coach: stopping capture: %w", err)
	}
	controller.dispatcher.Post(func() {
		controller.renderer.Hide()
		controller.bus.Reset(Idle())
	})
	controller.dispatcher.Flush()
	current.logger.Info("coach stopped")
	return stopErr
}

// Close stops the controller, waits for analyses to unwind, removes the
// overlay, and stops the UI dispatcher.
func (controller *Controller) Close() error {
	err := controller.Stop()

	controller.mu.Lock()
	alreadyClosed := controller.closed
	controller.closed = true
	controller.mu.Unlock()
	if alreadyClosed {
		return err
	}

	controller.workers.wait()
	controller.dispatcher.Post(controller.renderer.Close)
	controller.dispatcher.Close()
	return err
}

// Settle blocks until running analyses have finished and their UI
// updates have been applied.
func (controller *Controller) Settle() {
	controller.workers.wait()
	controller.dispatcher.Flush()
}

// UpdateContext replaces the coach context. A different context lifts
// a planner quota halt, drops the held instruction, and makes the next
// frame analyze as if it were the first.
func (controller *Controller) UpdateContext(coach vision.CoachContext) {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	current := controller.session
	if current == nil || current.coach == coach {
		return
	}
	current.coach = coach
	current.quotaHalted = false
	current.didInitial = false
	current.holdInstruction = ""
	current.holdUntil = time.Time{}
	current.logger.Info("coach context updated",
		"device", coach.SelectedDevice,
		"app", coach.ExpectedAppName,
		"app_query", coach.ExpectedAppQuery,
	)
}

// HandleFrame implements capture.Handler. It stores the frame and
// decides whether to analyze. It never blocks on I/O.
func (controller *Controller) HandleFrame(captured *frame.Frame) {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	current := controller.session
	if current == nil {
		captured.Release()
		return
	}
	controller.slot.Put(captured)

	now := controller.clock.Now()
	if !current.limiter.AllowN(now, 1) {
		return
	}
	if current.quotaHalted {
		return
	}

	var signature uint64
	controller.slot.Inspect(func(latest *frame.Frame) { signature = frame.Signature(latest) })
	timing := controller.settings.Timing
	delta := frame.SignatureDelta(signature, current.lastSignature)

	var trigger string
	switch {
	case !current.didInitial:
		trigger = "initial"
	case current.lastSignature != 0 && delta >= timing.ChangeThreshold:
		trigger = "change"
	case current.lock == nil && now.Sub(current.lastAnalysis) >= timing.NoLockRetry && !current.inFlight.Load():
		trigger = "retry"
	default:
		return
	}

	current.lastSignature = signature
	current.didInitial = true
	controller.dispatchLocked(current, now, trigger)
}

// HandleFatal implements capture.Handler: the session ends in Error.
func (controller *Controller) HandleFatal(err error) {
	controller.mu.Lock()
	current := controller.session
	controller.mu.Unlock()
	if current == nil {
		return
	}
	current.logger.Error("capture failed", "error", err)
	controller.fail(current, "Screen capture stopped: "+err.Error(), "capture: "+err.Error())
}

// dispatchLocked starts an analysis unless one is running or the
// cooldown has not passed. Caller holds mu.
func (controller *Controller) dispatchLocked(current *session, now time.Time, trigger string) {
	if now.Sub(current.lastAnalysis) < controller.settings.Timing.Cooldown {
		return
	}
	if !current.inFlight.CompareAndSwap(false, true) {
		return
	}
	current.lastAnalysis = now

	clone, err := controller.slot.Clone()
	if err != nil {
		current.inFlight.Store(false)
		current.logger.Warn("cloning frame for analysis", "error", err)
		return
	}

	if missing, ok := readCredentials(controller.prefs).check(); !ok {
		clone.Release()
		current.inFlight.Store(false)
		current.lock = nil
		current.logger.Warn("analysis skipped", "reason", missing.detail)
		controller.post(current, func() {
			controller.setStatus(missing.status)
			controller.publish(Errored(missing.detail))
		})
		return
	}

	job := analysis{
		session:     current,
		frame:       clone,
		coach:       current.coach,
		trigger:     trigger,
		fingerprint: frame.Fingerprint(clone),
	}
	controller.post(current, func() {
		controller.setStatus("Analyzing…")
		controller.publish(Scanning())
	})
	if !controller.workers.tryGo(func() { controller.analyze(job) }) {
		clone.Release()
		current.inFlight.Store(false)
		current.logger.Warn("analysis dropped, worker pool full")
	}
}

// analyze runs on a worker. It releases the frame and clears the
// in-flight flag on every path.
func (controller *Controller) analyze(job analysis) {
	current := job.session
	logger := current.logger.With("frame", job.fingerprint, "trigger", job.trigger)
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("analysis panicked", "panic", recovered)
			controller.complete(current, "Coach internal error.", Errored("internal error"))
		}
		job.frame.Release()
		current.inFlight.Store(false)
	}()

	started := controller.clock.Now()
	screenshot, err := vision.EncodeImage(job.frame, controller.settings.JPEGQuality)
	if err != nil {
		logger.Error("encoding screenshot", "error", err)
		controller.complete(current, "Screenshot encoding failed.", Errored("encode: "+err.Error()))
		return
	}

	instruction, held := controller.heldInstruction(current, started)
	if held {
		logger.Debug("reusing held instruction", "instruction", instruction)
	} else {
		planned, err := controller.planner.Plan(current.ctx, screenshot, job.coach)
		if current.ctx.Err() != nil {
			logger.Debug("analysis abandoned after stop")
			return
		}
		if err != nil {
			controller.completePlannerError(current, err, logger)
			return
		}
		instruction = strings.TrimSpace(planned)
		logger.Info("planner instruction", "instruction", instruction)
		if instruction != "" {
			controller.holdFor(current, instruction, started)
		}
	}
	if instruction == "" {
		controller.complete(current, "No instruction.", Lost())
		return
	}

	located, err := controller.locator.Locate(current.ctx, screenshot, instruction)
	if current.ctx.Err() != nil {
		logger.Debug("analysis abandoned after stop")
		return
	}
	if err != nil {
		logger.Info("locator found no target", "instruction", instruction, "reason", vision.Detail(err))
		controller.completeLocating(current, instruction)
		return
	}
	if !MatchesInstruction(instruction, located.MatchedText) {
		logger.Info("locator label mismatch",
			"instruction", instruction,
			"keyword", Keyword(instruction),
			"matched_text", located.MatchedText,
		)
		controller.completeLocating(current, instruction)
		return
	}
	target, err := Sanitize(located.Box, controller.display)
	if err != nil {
		logger.Info("locator box rejected", "instruction", instruction, "error", err)
		controller.completeLocating(current, instruction)
		return
	}

	logger.Info("target locked",
		"instruction", instruction,
		"cx", target.CX,
		"cy", target.CY,
		"diameter", target.Diameter,
	)
	controller.completeLocked(current, instruction, target)
}

func (controller *Controller) heldInstruction(current *session, now time.Time) (string, bool) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if current.holdInstruction != "" && now.Before(current.holdUntil) {
		return current.holdInstruction, true
	}
	return "", false
}

func (controller *Controller) holdFor(current *session, instruction string, started time.Time) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	current.holdInstruction = instruction
	current.holdUntil = started.Add(controller.settings.Timing.LocatingHold)
}

func (controller *Controller) completePlannerError(current *session, err error, logger *slog.Logger) {
	if errors.Is(err, vision.ErrInsufficientQuota) {
		logger.Warn("planner quota exhausted, analysis halted until the context changes")
		controller.mu.Lock()
		if controller.session == current {
			current.quotaHalted = true
		}
		controller.mu.Unlock()
		controller.complete(current, "OpenAI quota exceeded.", Errored("OpenAI quota exceeded"))
		return
	}
	detail := vision.Detail(err)
	logger.Warn("planner failed", "error", err)
	controller.complete(current, "OpenAI error: "+detail, Errored("OpenAI: "+detail))
}

func (controller *Controller) completeLocating(current *session, instruction string) {
	short := truncateRunes(instruction, instructionRunes)
	controller.complete(current, "Locating: "+short, Candidate("locating:"+short))
}

// complete publishes a non-Locked outcome: the lock is cleared and the
// ring hidden with the phase update.
func (controller *Controller) complete(current *session, status string, phase Phase) {
	controller.mu.Lock()
	if controller.session != current {
		controller.mu.Unlock()
		return
	}
	current.lock = nil
	controller.mu.Unlock()

	controller.post(current, func() {
		controller.setStatus(status)
		controller.publish(phase)
	})
}

// completeLocked shows the ring. The locating hold ends with the lock:
// the next screen change is planned afresh.
func (controller *Controller) completeLocked(current *session, instruction string, target Target) {
	controller.mu.Lock()
	if controller.session != current {
		controller.mu.Unlock()
		return
	}
	current.lock = &Lock{Target: target, Instruction: instruction, At: controller.clock.Now()}
	current.holdInstruction = ""
	current.holdUntil = time.Time{}
	controller.mu.Unlock()

	label := fmt.Sprintf("%s@%d,%d", truncateRunes(instruction, instructionRunes), target.CX, target.CY)
	controller.post(current, func() {
		controller.renderer.ShowAt(target.CX, target.CY, target.Diameter)
		controller.setStatus(instruction)
		controller.publish(Locked(label))
	})
}

// fail ends current with an Error phase instead of Idle.
func (controller *Controller) fail(current *session, status, detail string) {
	if !controller.endSession(current) {
		return
	}
	controller.dispatcher.Post(func() {
		controller.setStatus(status)
		controller.publish(Errored(detail))
		controller.bus.SetRunning(false)
	})
}

// endSession detaches current if it is still the active session.
func (controller *Controller) endSession(current *session) bool {
	controller.mu.Lock()
	if controller.session != current {
		controller.mu.Unlock()
		return false
	}
	controller.session = nil
	controller.mu.Unlock()

	current.cancel()
	controller.slot.Clear()
	return true
}

// post queues a UI task that runs only if current is still active.
func (controller *Controller) post(current *session, task func()) {
	controller.dispatcher.Post(func() {
		controller.mu.Lock()
		active := controller.session == current
		controller.mu.Unlock()
		if active {
			task()
		}
	})
}

// setStatus and publish run on the dispatcher.

func (controller *Controller) setStatus(text string) {
	controller.renderer.SetStatus(text)
	controller.bus.SetHint(text)
}

func (controller *Controller) publish(phase Phase) {
	if phase.Kind != KindLocked {
		controller.renderer.Hide()
	}
	controller.bus.Publish(phase)
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
