package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
)

// SetConfig evaluates a configured structure against the task's
// transformed input; the result is the raw output.
type SetConfig struct {
	Base
	Value any // literal/expression/template structure
}

// SetEvaluator is the narrow dependency setRuntime needs from scope.
type SetEvaluator interface {
	ResolveValue(value any, input json.RawMessage) (json.RawMessage, error)
}

type setRuntime struct {
	cfg  *SetConfig
	eval SetEvaluator
	out  json.RawMessage
}

// NewSetRuntime constructs the Set runtime wrapper.
func NewSetRuntime(cfg *SetConfig, eval SetEvaluator) Runtime {
	return &setRuntime{cfg: cfg, eval: eval}
}

func (r *setRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	out, err := r.eval.ResolveValue(r.cfg.Value, input)
	if err != nil {
		return Outcome{}, err
	}
	r.out = out
	return Done(out), nil
}

func (r *setRuntime) OnChildCompleted(ctx context.Context, _ node.Position, output json.RawMessage) (Outcome, error) {
	return Done(output), nil
}

func (r *setRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return r.out, nil
}
