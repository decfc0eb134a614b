package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
)

// ForConfig iterates over a collection, binding `each`/`at` aliases
// (default `item`/`index`) into scope for its Do body.
type ForConfig struct {
	Base
	In    any // expression producing the collection
	Each  string
	At    string
	While any // expression; loop stops when false
}

// ForEvaluator is the narrow dependency forRuntime needs from scope.
type ForEvaluator interface {
	ResolveList(value any, input json.RawMessage) ([]json.RawMessage, error)
	ResolveBool(value any, input json.RawMessage) (bool, error)
	// BindIteration returns an input for the body annotated with the
	// current item/index under the given alias names.
	BindIteration(each, at string, item json.RawMessage, index int, input json.RawMessage) (json.RawMessage, error)
}

type forRuntime struct {
	self  *node.Node
	cfg   *ForConfig
	eval  ForEvaluator
	items []json.RawMessage
	idx   int
	input json.RawMessage
	last  json.RawMessage
}

// NewForRuntime constructs the For runtime wrapper.
func NewForRuntime(self *node.Node, cfg *ForConfig, eval ForEvaluator) Runtime {
	return &forRuntime{self: self, cfg: cfg, eval: eval}
}

// NewForRuntimeResumed rebuilds a For runtime mid-iteration from its
// persisted items/cursor/accumulator, for an advancement pass that
// resumes below a For without re-running Start (the list is resolved
// exactly once, at first entry).
func NewForRuntimeResumed(self *node.Node, cfg *ForConfig, eval ForEvaluator, items []json.RawMessage, idx int, last json.RawMessage) Runtime {
	return &forRuntime{self: self, cfg: cfg, eval: eval, items: items, idx: idx, last: last}
}

func (r *forRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	r.input = input
	r.last = input
	items, err := r.eval.ResolveList(r.cfg.In, input)
	if err != nil {
		return Outcome{}, err
	}
	r.items = items
	r.idx = 0
	return r.enterIteration(ctx)
}

func (r *forRuntime) enterIteration(ctx context.Context) (Outcome, error) {
	if r.idx >= len(r.items) || len(r.self.Children) == 0 {
		return Done(r.last), nil
	}
	if r.cfg.While != nil {
		ok, err := r.eval.ResolveBool(r.cfg.While, r.last)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			return Done(r.last), nil
		}
	}
	each, at := r.cfg.Each, r.cfg.At
	if each == "" {
		each = "item"
	}
	if at == "" {
		at = "index"
	}
	bound, err := r.eval.BindIteration(each, at, r.items[r.idx], r.idx, r.last)
	if err != nil {
		return Outcome{}, err
	}
	_ = bound // iteration binding is consulted by the executor via the scope, not re-passed as raw input
	return Advance(r.self.Children[0].Position), nil
}

func (r *forRuntime) OnChildCompleted(ctx context.Context, child node.Position, output json.RawMessage) (Outcome, error) {
	idx := childIndexOf(r.self, child)
	if idx < 0 {
		return Outcome{}, errInvalidChild
	}
	if idx+1 < len(r.self.Children) {
		return Advance(r.self.Children[idx+1].Position), nil
	}
	// Last child of the body finished: that's the accumulator for this iteration.
	r.last = output
	r.idx++
	return r.enterIteration(ctx)
}

func (r *forRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return r.last, nil
}

// Snapshot exposes the loop's resolved list, cursor, and accumulator
// for the executor to persist across advancements; For's own durable
// NodeState has no other way to recover this after the Runtime object
// is discarded at the end of an advancement.
func (r *forRuntime) Snapshot() (items []json.RawMessage, idx int, last json.RawMessage) {
	return r.items, r.idx, r.last
}
