// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import "sync"

// State is one bus snapshot.
type State struct {
	Phase   Phase  `cbor:"1,keyasint"`
	Hint    string `cbor:"2,keyasint,omitempty"`
	Running bool   `cbor:"3,keyasint,omitempty"`

	// Revision increases with every change.
	Revision uint64 `cbor:"4,keyasint"`
}

// Bus broadcasts the pipeline phase, the latest hint, and the running
// flag. There is one writer; readers poll Snapshot or Subscribe.
// Subscribers see the latest state only: a slow reader misses
// intermediate states rather than slowing the writer. The zero value is
// an idle bus.
type Bus struct {
	mu          sync.Mutex
	state       State
	subscribers map[uint64]chan State
	nextID      uint64
}

// NewBus returns an idle bus.
func NewBus() *Bus { return &Bus{} }

// Snapshot returns the current state.
func (bus *Bus) Snapshot() State {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.state
}

// Publish replaces the phase.
func (bus *Bus) Publish(phase Phase) {
	bus.update(func(state *State) bool {
		if state.Phase == phase {
			return false
		}
		state.Phase = phase
		return true
	})
}

// SetHint replaces the hint text.
func (bus *Bus) SetHint(hint string) {
	bus.update(func(state *State) bool {
		if state.Hint == hint {
			return false
		}
		state.Hint = hint
		return true
	})
}

// SetRunning sets the running flag.
func (bus *Bus) SetRunning(running bool) {
	bus.update(func(state *State) bool {
		if state.Running == running {
			return false
		}
		state.Running = running
		return true
	})
}

// Reset sets phase, clears the hint, and clears the running flag in
// one update.
func (bus *Bus) Reset(phase Phase) {
	bus.update(func(state *State) bool {
		if state.Phase == phase && state.Hint == "" && !state.Running {
			return false
		}
		state.Phase = phase
		state.Hint = ""
		state.Running = false
		return true
	})
}

// Subscribe returns a channel holding at most one pending state, primed
// with the current state, and a function that unsubscribes and closes
// the channel.
func (bus *Bus) Subscribe() (<-chan State, func()) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.subscribers == nil {
		bus.subscribers = make(map[uint64]chan State)
	}
	id := bus.nextID
	bus.nextID++
	channel := make(chan State, 1)
	channel <- bus.state
	bus.subscribers[id] = channel

	var once sync.Once
	return channel, func() {
		once.Do(func() {
			bus.mu.Lock()
			defer bus.mu.Unlock()
			delete(bus.subscribers, id)
			close(channel)
		})
	}
}

func (bus *Bus) update(mutate func(*State) bool) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if !mutate(&bus.state) {
		return
	}
	bus.state.Revision++
	for _, channel := range bus.subscribers {
		replaceLatest(channel, bus.state)
	}
}

// replaceLatest drops a pending state in favor of state. Sends happen
// only under the bus lock, so the second send cannot block.
func replaceLatest(channel chan State, state State) {
	select {
	case channel <- state:
		return
	default:
	}
	select {
	case <-channel:
	default:
	}
	channel <- state
}
