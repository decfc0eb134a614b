package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
)

// ForkBranch is one independent sub-sequence of a Fork.
type ForkBranch struct {
	Name string
	Root *node.Node // the branch's entry node, a child of the Fork node
}

// ForkConfig lists a Fork's N branches. Only `join: all`
// (wait for every branch) is implemented — see DESIGN.md's Open
// Question decision: this is the canonical mode, and the grounding
// source implements only sequential fan-in.
type ForkConfig struct {
	Base
	Branches []ForkBranch
}

type forkRuntime struct {
	self      *node.Node
	cfg       *ForkConfig
	completed map[string]json.RawMessage
}

// NewForkRuntime constructs the Fork runtime wrapper.
func NewForkRuntime(self *node.Node, cfg *ForkConfig) Runtime {
	return &forkRuntime{self: self, cfg: cfg, completed: make(map[string]json.RawMessage)}
}

// NewForkRuntimeResumed rebuilds a Fork runtime from its persisted
// per-branch completions, for an advancement pass that resumes below
// one of its branches.
func NewForkRuntimeResumed(self *node.Node, cfg *ForkConfig, completed map[string]json.RawMessage) Runtime {
	if completed == nil {
		completed = make(map[string]json.RawMessage)
	}
	return &forkRuntime{self: self, cfg: cfg, completed: completed}
}

func (r *forkRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	if len(r.cfg.Branches) == 0 {
		return Done(input), nil
	}
	// Start suspends on the fork-branch boundary. The executor returns
	// this suspension to its caller like any other and does not start
	// the branches itself; nothing in the repository calls Branches.
	return Suspend(SuspendForkBranch), nil
}

func (r *forkRuntime) OnChildCompleted(ctx context.Context, child node.Position, output json.RawMessage) (Outcome, error) {
	for _, b := range r.cfg.Branches {
		if b.Root.Position.Equal(child) {
			r.completed[b.Name] = output
			break
		}
	}
	if len(r.completed) < len(r.cfg.Branches) {
		return Suspend(SuspendForkBranch), nil
	}
	agg := make(map[string]json.RawMessage, len(r.completed))
	for name, out := range r.completed {
		agg[name] = out
	}
	raw, err := json.Marshal(agg)
	if err != nil {
		return Outcome{}, err
	}
	return Done(raw), nil
}

func (r *forkRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	agg := make(map[string]json.RawMessage, len(r.completed))
	for name, out := range r.completed {
		agg[name] = out
	}
	return json.Marshal(agg)
}

// Branches exposes the fork's branch entry points. The executor does
// not call it and does not dispatch branches.
func (r *forkRuntime) Branches() []ForkBranch {
	return r.cfg.Branches
}

// Snapshot exposes the set of branches that have completed so far, for
// the executor to persist across advancements.
func (r *forkRuntime) Snapshot() map[string]json.RawMessage {
	return r.completed
}
