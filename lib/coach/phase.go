// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import "fmt"

// Kind enumerates pipeline phases.
type Kind uint8

const (
	KindIdle Kind = iota
	KindRequestingCapture
	KindStarting
	KindScanning
	KindCandidate
	KindLocked
	KindLost
	KindError
)

var kindNames = [...]string{
	KindIdle:              "idle",
	KindRequestingCapture: "requesting_capture",
	KindStarting:          "starting",
	KindScanning:          "scanning",
	KindCandidate:         "candidate",
	KindLocked:            "locked",
	KindLost:              "lost",
	KindError:             "error",
}

func (kind Kind) String() string {
	if int(kind) < len(kindNames) {
		return kindNames[kind]
	}
	return fmt.Sprintf("kind(%d)", uint8(kind))
}

// Phase is the pipeline state published on the bus. Label is set for
// Candidate and Locked, Detail for Error.
type Phase struct {
	Kind   Kind   `cbor:"1,keyasint"`
	Label  string `cbor:"2,keyasint,omitempty"`
	Detail string `cbor:"3,keyasint,omitempty"`
}

// Phase constructors.
func Idle() Phase              { return Phase{Kind: KindIdle} }
func RequestingCapture() Phase { return Phase{Kind: KindRequestingCapture} }
func Starting() Phase          { return Phase{Kind: KindStarting} }
func Scanning() Phase          { return Phase{Kind: KindScanning} }
func Candidate(label string) Phase {
	return Phase{Kind: KindCandidate, Label: label}
}
func Locked(label string) Phase { return Phase{Kind: KindLocked, Label: label} }
func Lost() Phase               { return Phase{Kind: KindLost} }
func Errored(detail string) Phase {
	return Phase{Kind: KindError, Detail: detail}
}

// Message is the user-facing sentence for the phase.
func (phase Phase) Message() string {
	switch phase.Kind {
	case KindIdle:
		return "Coach mode is idle."
	case KindRequestingCapture:
		return "Requesting screen capture permission…"
	case KindStarting:
		return "Starting screen capture…"
	case KindScanning:
		return "Scanning the screen for the next setup step…"
	case KindCandidate:
		return fmt.Sprintf("Found %q. Verifying…", phase.Label)
	case KindLocked:
		return fmt.Sprintf("Tap %q to continue.", phase.Label)
	case KindLost:
		return "Lost the target. Rescanning…"
	case KindError:
		return "Coach error: " + phase.Detail
	}
	return phase.Kind.String()
}

func (phase Phase) String() string {
	switch {
	case phase.Label != "":
		return phase.Kind.String() + "(" + phase.Label + ")"
	case phase.Detail != "":
		return phase.Kind.String() + "(" + phase.Detail + ")"
	}
	return phase.Kind.String()
}
