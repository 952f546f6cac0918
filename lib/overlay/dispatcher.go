// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"log/slog"
	"sync"
)

// Dispatcher runs posted tasks sequentially on its own goroutine.
//
// The queue is unbounded: Post appends under a mutex and signals a
// capacity-1 notify channel, so callers on the capture or worker
// goroutines never wait for the UI.
type Dispatcher struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending []func()
	closed  bool
	notify  chan struct{}
	done    chan struct{}
}

// NewDispatcher starts the dispatcher goroutine.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := &Dispatcher{
		logger: logger,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go dispatcher.run()
	return dispatcher
}

// Post queues task. Returns false, dropping the task, after Close.
func (dispatcher *Dispatcher) Post(task func()) bool {
	dispatcher.mu.Lock()
	if dispatcher.closed {
		dispatcher.mu.Unlock()
		return false
	}
	dispatcher.pending = append(dispatcher.pending, task)
	dispatcher.mu.Unlock()

	select {
	case dispatcher.notify <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until every task posted before the call has run.
// Returns immediately after Close. Must not be called from a task.
func (dispatcher *Dispatcher) Flush() {
	barrier := make(chan struct{})
	if !dispatcher.Post(func() { close(barrier) }) {
		<-dispatcher.done
		return
	}
	select {
	case <-barrier:
	case <-dispatcher.done:
	}
}

// Close stops accepting tasks, runs the ones already queued, and waits
// for the goroutine to exit. Idempotent. Must not be called from a
// task.
func (dispatcher *Dispatcher) Close() {
	dispatcher.mu.Lock()
	alreadyClosed := dispatcher.closed
	dispatcher.closed = true
	dispatcher.mu.Unlock()

	if !alreadyClosed {
		select {
		case dispatcher.notify <- struct{}{}:
		default:
		}
	}
	<-dispatcher.done
}

func (dispatcher *Dispatcher) run() {
	defer close(dispatcher.done)
	for range dispatcher.notify {
		dispatcher.mu.Lock()
		batch := dispatcher.pending
		dispatcher.pending = nil
		closed := dispatcher.closed
		dispatcher.mu.Unlock()

		for _, task := range batch {
			dispatcher.runTask(task)
		}
		if closed {
			return
		}
	}
}

// runTask isolates task panics so one bad update cannot stop the UI.
func (dispatcher *Dispatcher) runTask(task func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			dispatcher.logger.Error("overlay task panicked", "panic", recovered)
		}
	}()
	task()
}
