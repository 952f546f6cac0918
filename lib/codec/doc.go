// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by everything the
// coach writes in binary form, chiefly the bus transcripts recorded by
// coach-replay.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same state always produces identical bytes, so two transcripts of
// the same replay can be compared byte for byte.
//
// For single values:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For CBOR sequences (RFC 8742), one item after another in a file:
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Types written this way carry `cbor` struct tags with integer keys
// (`cbor:"1,keyasint"`), which keeps records small and lets fields be
// renamed without breaking old transcripts.
package codec
