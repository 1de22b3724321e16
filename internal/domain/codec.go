package domain

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// The compact binary form is CBOR: digests as raw byte strings, payload bytes
// included, timestamps as epoch microseconds. The human-readable form is plain
// encoding/json via the struct tags.

func EncodeBinary(v any) ([]byte, error) { return cbor.Marshal(v) }

func DecodeBinary(data []byte, v any) error { return cbor.Unmarshal(data, v) }

// EncodeBinaryTo streams the binary encoding, avoiding a second in-memory copy
// of large packs.
func EncodeBinaryTo(w io.Writer, v any) error { return cbor.NewEncoder(w).Encode(v) }

func DecodeBinaryFrom(r io.Reader, v any) error { return cbor.NewDecoder(r).Decode(v) }
