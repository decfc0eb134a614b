package nodestate

import (
	"encoding/json"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec()
	s := &State{
		RawInput:   json.RawMessage(`{"a":1}`),
		ChildIndex: 3,
		StartedAt:  "2026-08-01T00:00:00Z",
		Variables:  map[string]json.RawMessage{"cursor": json.RawMessage("5")},
		AttemptIndex: 2,
	}

	raw, err := codec.Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.ChildIndex != s.ChildIndex || decoded.StartedAt != s.StartedAt || decoded.AttemptIndex != s.AttemptIndex {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, s)
	}
	if string(decoded.RawInput) != string(s.RawInput) {
		t.Errorf("RawInput mismatch: got %s, want %s", decoded.RawInput, s.RawInput)
	}
	if string(decoded.Variables["cursor"]) != "5" {
		t.Errorf("Variables mismatch: got %v", decoded.Variables)
	}
}

func TestCodecEncodeNilState(t *testing.T) {
	codec := NewCodec()
	raw, err := codec.Encode(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if string(raw) != "null" {
		t.Errorf("expected null, got %s", raw)
	}
}

func TestCodecDecodeEmptyIsZeroState(t *testing.T) {
	codec := NewCodec()
	s, err := codec.Decode(nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if s.ChildIndex != 0 || s.AttemptIndex != 0 {
		t.Errorf("expected zero-value state, got %+v", s)
	}
}

func TestCodecOmitsZeroFields(t *testing.T) {
	codec := NewCodec()
	raw, err := codec.Encode(&State{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("expected compact empty object, got %s", raw)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := &State{Variables: map[string]json.RawMessage{"x": json.RawMessage("1")}}
	clone := s.Clone()
	clone.Variables["x"] = json.RawMessage("2")
	if string(s.Variables["x"]) != "1" {
		t.Errorf("mutating clone affected original: %s", s.Variables["x"])
	}
}
