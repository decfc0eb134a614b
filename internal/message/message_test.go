package message

import (
	"encoding/json"
	"testing"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/nodestate"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec()
	states := map[string]*nodestate.State{
		node.Root.String():               {RawInput: json.RawMessage(`{"x":1}`)},
		node.ParsePosition("/do/0").String(): {ChildIndex: 1},
	}

	m, err := codec.Encode("order-flow", "1.0.0", states, node.ParsePosition("/do/0"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if m.N != "order-flow" || m.V != "1.0.0" || m.P != "/do/0" {
		t.Errorf("unexpected message header: %+v", m)
	}

	wire, err := codec.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := codec.Unmarshal(wire)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	decodedStates, active, err := codec.Decode(parsed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !active.Equal(node.ParsePosition("/do/0")) {
		t.Errorf("active = %v, want /do/0", active)
	}
	if len(decodedStates) != len(states) {
		t.Errorf("got %d states, want %d", len(decodedStates), len(states))
	}
	if decodedStates["/do/0"].ChildIndex != 1 {
		t.Errorf("expected ChildIndex 1, got %+v", decodedStates["/do/0"])
	}
}

func TestWireFormUsesShortKeys(t *testing.T) {
	codec := NewCodec()
	m, err := codec.Encode("wf", "1", map[string]*nodestate.State{}, node.Root)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw, err := codec.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal generic: %v", err)
	}
	for _, key := range []string{"n", "v", "s", "p"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("wire form missing short key %q: %s", key, raw)
		}
	}
}
