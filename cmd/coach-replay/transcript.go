// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sagielster/DeviceLinkAssistant/lib/clock"
	"github.com/sagielster/DeviceLinkAssistant/lib/coach"
	"github.com/sagielster/DeviceLinkAssistant/lib/codec"
)

// record is one transcript entry.
type record struct {
	// Elapsed is milliseconds since the recorder started.
	Elapsed int64       `cbor:"1,keyasint"`
	State   coach.State `cbor:"2,keyasint"`
}

// recorder appends bus states to a CBOR sequence. It sees only the
// latest state when it falls behind; Revision gaps in the transcript
// mark skipped states.
type recorder struct {
	encoder     *codec.Encoder
	clock       clock.Clock
	started     time.Time
	logger      *slog.Logger
	unsubscribe func()
	done        chan struct{}
	err         error

	// recorded receives every record after it is written.
	recorded chan<- record
}

// startRecorder subscribes to bus and writes until stop. recorded may
// be nil.
func startRecorder(out io.Writer, bus *coach.Bus, clk clock.Clock, logger *slog.Logger, recorded chan<- record) *recorder {
	updates, unsubscribe := bus.Subscribe()
	rec := &recorder{
		encoder:     codec.NewEncoder(out),
		clock:       clk,
		started:     clk.Now(),
		logger:      logger,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
		recorded:    recorded,
	}
	go rec.run(updates)
	return rec
}

func (rec *recorder) run(updates <-chan coach.State) {
	defer close(rec.done)
	for state := range updates {
		if rec.err != nil {
			continue
		}
		entry := record{Elapsed: rec.clock.Now().Sub(rec.started).Milliseconds(), State: state}
		if err := rec.encoder.Encode(entry); err != nil {
			rec.err = fmt.Errorf("writing transcript: %w", err)
			rec.logger.Error("transcript write failed, recording stopped", "error", err)
			continue
		}
		if rec.recorded != nil {
			rec.recorded <- entry
		}
	}
}

// stop unsubscribes, waits for the pending state to be written, and
// returns the first write error.
func (rec *recorder) stop() error {
	rec.unsubscribe()
	<-rec.done
	return rec.err
}

// dumpTranscript prints every record in path, decoded or as CBOR
// diagnostic notation.
func dumpTranscript(path string, diagnostic bool, out io.Writer) error {
	if diagnostic {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for len(data) > 0 {
			var notation string
			notation, data, err = codec.DiagnoseFirst(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintln(out, notation)
		}
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := codec.NewDecoder(file)
	for {
		var entry record
		err := decoder.Decode(&entry)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		running := ""
		if entry.State.Running {
			running = " running"
		}
		fmt.Fprintf(out, "%8dms #%-4d %-40s %q%s\n",
			entry.Elapsed, entry.State.Revision, entry.State.Phase, entry.State.Hint, running)
	}
}
