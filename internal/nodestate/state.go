// Package nodestate implements the per-position mutable execution
// record and its compact, forward-compatible JSON codec.
package nodestate

import "encoding/json"

// State is the mutable record kept for one tree position. Only
// populated positions exist in a WorkflowInstance's state map.
type State struct {
	RawInput          json.RawMessage `json:"r,omitempty"`
	TransformedInput  json.RawMessage `json:"ti,omitempty"`
	RawOutput         json.RawMessage `json:"ro,omitempty"`
	TransformedOutput json.RawMessage `json:"to,omitempty"`
	ChildIndex        int             `json:"ci,omitempty"`
	StartedAt         string          `json:"sa,omitempty"` // RFC3339
	Variables         map[string]json.RawMessage `json:"vars,omitempty"`
	Context           json.RawMessage `json:"ctx,omitempty"` // root only

	// Try-specific
	AttemptIndex    int             `json:"ai,omitempty"`
	NextDelayMillis int64           `json:"nd,omitempty"`
	CaughtError     json.RawMessage `json:"ce,omitempty"`

	// For-specific
	IterationCursor int `json:"ic,omitempty"`
}

// Clone returns a deep-enough copy safe to mutate independently; the
// raw JSON byte slices are treated as immutable once set and are
// shared rather than copied.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Variables != nil {
		clone.Variables = make(map[string]json.RawMessage, len(s.Variables))
		for k, v := range s.Variables {
			clone.Variables[k] = v
		}
	}
	return &clone
}

// Codec (de)serializes a State to/from its compact wire form. Decoding
// silently ignores unknown keys, and Encoding omits zero-valued fields,
// keeping messages small and forward-compatible with new fields.
type Codec struct{}

// NewCodec returns the stateless State codec.
func NewCodec() Codec { return Codec{} }

// Encode serializes a State to its compact JSON object form.
func (Codec) Encode(s *State) (json.RawMessage, error) {
	if s == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(s)
}

// Decode parses a compact JSON object into a State. Unknown keys are
// ignored by encoding/json's default decode behavior.
func (Codec) Decode(raw json.RawMessage) (*State, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &State{}, nil
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
