// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type frame struct {
	Kind   string    `cbor:"kind"`
	ID     uint64    `cbor:"id,omitempty"`
	User   uuid.UUID `cbor:"user"`
	Reason string    `cbor:"reason,omitempty"`
}

type frameV1 struct {
	Kind string `cbor:"kind"`
}

func TestMapKeysEncodeDeterministically(t *testing.T) {
	first, err := Marshal(map[string]int{"zeta": 1, "alpha": 2, "mid": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(map[string]int{"mid": 3, "alpha": 2, "zeta": 1})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding differs between runs: %x != %x", first, again)
		}
	}
}

func TestTextMarshalerTravelsAsText(t *testing.T) {
	user := uuid.MustParse("8f1c2f4e-4a57-4a0b-9a4f-2a8a4c9e7d11")
	data, err := Marshal(frame{Kind: "event", User: user})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"`+user.String()+`"`) {
		t.Fatalf("user not encoded as a text string: %s", notation)
	}

	var decoded frame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.User != user {
		t.Fatalf("User = %v, want %v", decoded.User, user)
	}
}

func TestUntypedDecodeSeesUUIDText(t *testing.T) {
	user := uuid.New()
	data, err := Marshal(map[string]any{"user": user})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got, ok := decoded["user"].(string); !ok || got != user.String() {
		t.Fatalf("user = %#v, want the string %q", decoded["user"], user.String())
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	data, err := Marshal(frame{Kind: "reply", ID: 9, Reason: "added later"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var older frameV1
	if err := Unmarshal(data, &older); err != nil {
		t.Fatalf("Unmarshal into older type: %v", err)
	}
	if older.Kind != "reply" {
		t.Fatalf("Kind = %q, want reply", older.Kind)
	}
}

func TestAnyMapsHaveStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"queue": map[string]any{"held": 3}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if _, ok := outer["queue"].(map[string]any); !ok {
		t.Fatalf("nested value %T, want map[string]any", outer["queue"])
	}
}

func TestStreamRoundTrip(t *testing.T) {
	frames := []frame{
		{Kind: "hello"},
		{Kind: "call", ID: 1},
		{Kind: "reply", ID: 1, Reason: "unsupported"},
	}
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, f := range frames {
		if err := encoder.Encode(f); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	decoder := NewDecoder(&buffer)
	for i, want := range frames {
		var got frame
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode frame %d: %v", i, err)
		}
		if got != want {
			t.Errorf("frame %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestRawMessageDefersDecoding(t *testing.T) {
	type envelope struct {
		Kind    string     `cbor:"kind"`
		Payload RawMessage `cbor:"payload"`
	}
	inner, err := Marshal(frameV1{Kind: "inner"})
	if err != nil {
		t.Fatalf("Marshal inner: %v", err)
	}
	data, err := Marshal(envelope{Kind: "outer", Payload: inner})
	if err != nil {
		t.Fatalf("Marshal envelope: %v", err)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	var payload frameV1
	if err := Unmarshal(decoded.Payload, &payload); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if payload.Kind != "inner" {
		t.Fatalf("payload Kind = %q, want inner", payload.Kind)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var f frame
	if err := Unmarshal([]byte{0xff, 0xfe, 0xfd}, &f); err == nil {
		t.Fatal("Unmarshal accepted invalid CBOR")
	}
}
