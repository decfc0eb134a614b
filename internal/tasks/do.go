package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
)

// DoConfig is a sequential composite: its body runs via the node's
// Children in order. No kind-specific fields beyond Base.
type DoConfig struct {
	Base
}

// doRuntime drives childIndex through Children, honoring `then`
// overrides resolved by the caller (the executor resolves flow
// directives against sibling names; doRuntime only tracks position).
type doRuntime struct {
	self     *node.Node
	lastOut  json.RawMessage
}

// NewDoRuntime constructs the Do runtime wrapper for self.
func NewDoRuntime(self *node.Node) Runtime {
	return &doRuntime{self: self}
}

func (r *doRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	if len(r.self.Children) == 0 {
		return Done(input), nil
	}
	return Advance(r.self.Children[0].Position), nil
}

func (r *doRuntime) OnChildCompleted(ctx context.Context, child node.Position, output json.RawMessage) (Outcome, error) {
	r.lastOut = output
	idx := childIndexOf(r.self, child)
	if idx < 0 || idx+1 >= len(r.self.Children) {
		return Done(output), nil
	}
	return Advance(r.self.Children[idx+1].Position), nil
}

func (r *doRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return r.lastOut, nil
}

func childIndexOf(parent *node.Node, pos node.Position) int {
	for i, c := range parent.Children {
		if c.Position.Equal(pos) {
			return i
		}
	}
	return -1
}
