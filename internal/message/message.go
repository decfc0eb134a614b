// Package message implements the durable continuation wire format: a
// self-describing JSON object carrying a workflow's identity, its
// active position, and the state of every populated node.
package message

import (
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/nodestate"
)

// Message is the wire form `{n, v, s, p}`.
type Message struct {
	N string                     `json:"n"`
	V string                     `json:"v"`
	S map[string]json.RawMessage `json:"s"`
	P string                     `json:"p"`
}

// Codec (de)serializes a Message. Implementations should prefer short
// field names to bound message size by workflow depth × state size.
type Codec struct {
	states nodestate.Codec
}

// NewCodec returns the Message codec.
func NewCodec() Codec {
	return Codec{states: nodestate.NewCodec()}
}

// Encode builds the wire Message from a workflow's identity, its
// decoded per-position states, and the active position.
func (c Codec) Encode(name, version string, states map[string]*nodestate.State, active node.Position) (*Message, error) {
	s := make(map[string]json.RawMessage, len(states))
	for pos, st := range states {
		raw, err := c.states.Encode(st)
		if err != nil {
			return nil, err
		}
		s[pos] = raw
	}
	return &Message{N: name, V: version, S: s, P: active.String()}, nil
}

// Decode parses the states map and active position out of a Message.
func (c Codec) Decode(m *Message) (map[string]*nodestate.State, node.Position, error) {
	states := make(map[string]*nodestate.State, len(m.S))
	for pos, raw := range m.S {
		st, err := c.states.Decode(raw)
		if err != nil {
			return nil, nil, err
		}
		states[pos] = st
	}
	return states, node.ParsePosition(m.P), nil
}

// Marshal serializes a Message to its compact JSON bytes.
func (Codec) Marshal(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal parses compact JSON bytes into a Message.
func (Codec) Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
