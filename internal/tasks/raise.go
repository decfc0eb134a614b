package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// RaiseConfig constructs an Error (inline, or by reference into a
// workflow-scoped catalogue already resolved at compile time into
// Error) and throws it; it never produces output.
//
// DESIGN.md Open Question decision: when both a catalogue Ref and
// inline overrides are present, inline fields win over the resolved
// catalogue defaults (resolved once by internal/workflowdef before the
// executor ever sees this Config).
type RaiseConfig struct {
	Base
	Error werrors.Error
	With  werrors.Filter // field overrides applied on top of Error
}

type raiseRuntime struct {
	self *node.Node
	cfg  *RaiseConfig
}

// NewRaiseRuntime constructs the Raise runtime wrapper.
func NewRaiseRuntime(self *node.Node, cfg *RaiseConfig) Runtime {
	return &raiseRuntime{self: self, cfg: cfg}
}

func (r *raiseRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	e := r.cfg.Error
	applyWith(&e, r.cfg.With)
	e.Instance = r.self.Position.String()
	return Raise(&e), nil
}

func (r *raiseRuntime) OnChildCompleted(ctx context.Context, _ node.Position, output json.RawMessage) (Outcome, error) {
	return Done(output), nil
}

func (r *raiseRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return nil, nil
}

func applyWith(e *werrors.Error, with werrors.Filter) {
	if with.Type != "" {
		e.Type = with.Type
	}
	if with.Status != 0 {
		e.Status = with.Status
	}
	if with.Title != "" {
		e.Title = with.Title
	}
	if with.Detail != "" {
		e.Detail = with.Detail
	}
	if with.Instance != "" {
		e.Instance = with.Instance
	}
}
