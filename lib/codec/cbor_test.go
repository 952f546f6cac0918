// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// sampleRecord mirrors the shape of a transcript record: integer keys,
// a nested struct, and omitempty strings.
type sampleRecord struct {
	Elapsed int64       `cbor:"1,keyasint"`
	Phase   samplePhase `cbor:"2,keyasint"`
	Hint    string      `cbor:"3,keyasint,omitempty"`
}

type samplePhase struct {
	Kind  uint8  `cbor:"1,keyasint"`
	Label string `cbor:"2,keyasint,omitempty"`
}

// sampleRecordV0 is an older reader that knows only the first field.
type sampleRecordV0 struct {
	Elapsed int64 `cbor:"1,keyasint"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRecord{
		Elapsed: 1350,
		Phase:   samplePhase{Kind: 5, Label: "Tap Continue@540,1992"},
		Hint:    "Tap Continue",
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	// Map iteration order is random; encoded bytes must not be.
	values := map[string]int{"scanning": 3, "locked": 5, "idle": 0, "error": 7}
	first, err := Marshal(values)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(values)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("non-deterministic encoding:\n%x\n%x", first, again)
		}
	}
}

func TestOmitemptyRespected(t *testing.T) {
	withHint, err := Marshal(sampleRecord{Hint: "Scanning…"})
	if err != nil {
		t.Fatal(err)
	}
	without, err := Marshal(sampleRecord{})
	if err != nil {
		t.Fatal(err)
	}
	if len(without) >= len(withHint) {
		t.Errorf("empty hint was encoded: %d bytes vs %d", len(without), len(withHint))
	}
}

func TestSequenceRoundtrip(t *testing.T) {
	records := []sampleRecord{
		{Elapsed: 0, Phase: samplePhase{Kind: 3}, Hint: "Scanning…"},
		{Elapsed: 400, Phase: samplePhase{Kind: 4, Label: "locating:Tap Open"}, Hint: "Locating: Tap Open"},
		{Elapsed: 1200, Phase: samplePhase{Kind: 5, Label: "Tap Open@540,1500"}, Hint: "Tap Open"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for index, want := range records {
		var got sampleRecord
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", index, err)
		}
		if got != want {
			t.Errorf("record %d = %+v, want %+v", index, got, want)
		}
	}
	var extra sampleRecord
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last record, got %v", err)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	data, err := Marshal(sampleRecord{Elapsed: 77, Hint: "new field"})
	if err != nil {
		t.Fatal(err)
	}
	var old sampleRecordV0
	if err := Unmarshal(data, &old); err != nil {
		t.Fatalf("older reader rejected newer record: %v", err)
	}
	if old.Elapsed != 77 {
		t.Errorf("Elapsed = %d", old.Elapsed)
	}
}

func TestDuplicateKeysRejected(t *testing.T) {
	// {1: "a", 1: "b"}
	data := []byte{0xa2, 0x01, 0x61, 'a', 0x01, 0x61, 'b'}
	var decoded map[int]string
	if err := Unmarshal(data, &decoded); err == nil {
		t.Errorf("duplicate key accepted: %v", decoded)
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var decoded sampleRecord
	if err := Unmarshal([]byte{0xff, 0xfe}, &decoded); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}

func TestDiagnoseFirst(t *testing.T) {
	first, err := Marshal(sampleRecord{Elapsed: 5, Hint: "Coach started."})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(sampleRecordV0{Elapsed: 42})
	if err != nil {
		t.Fatal(err)
	}
	sequence := append(append([]byte(nil), first...), second...)

	notation, remaining, err := DiagnoseFirst(sequence)
	if err != nil {
		t.Fatalf("DiagnoseFirst: %v", err)
	}
	if !strings.Contains(notation, `"Coach started."`) {
		t.Errorf("first notation %q lacks the hint", notation)
	}

	notation, remaining, err = DiagnoseFirst(remaining)
	if err != nil {
		t.Fatalf("DiagnoseFirst second: %v", err)
	}
	if notation != "{1: 42}" {
		t.Errorf("second notation = %q, want {1: 42}", notation)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no remaining bytes, got %d", len(remaining))
	}
}
