// Package executor implements the single-shot workflow advancement loop:
// given a workflow's compiled node tree and its last durable message, it
// runs the task-kind state machines in internal/tasks until the next
// suspend/fault/completion point and produces the next message.
package executor

import (
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/scope"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// scopedEvaluator adapts a scope.Evaluator bound to a particular node's
// ambient Scope into the narrow per-kind Evaluator interfaces
// internal/tasks depends on, keeping tasks decoupled from the
// expression layer's concrete types.
type scopedEvaluator struct {
	eval *scope.Evaluator
	sc   *scope.Scope
}

func newScopedEvaluator(eval *scope.Evaluator, sc *scope.Scope) scopedEvaluator {
	return scopedEvaluator{eval: eval, sc: sc}
}

func (a scopedEvaluator) withInput(input json.RawMessage) *scope.Scope {
	var v any
	if len(input) > 0 {
		_ = json.Unmarshal(input, &v)
	}
	return a.sc.Child(map[string]any{"input": v})
}

func (a scopedEvaluator) ResolveBool(value any, input json.RawMessage) (bool, error) {
	return scope.ResolveToBool(a.eval, value, a.withInput(input))
}

func (a scopedEvaluator) ResolveBoolWithVar(value any, varName string, varValue any, input json.RawMessage) (bool, error) {
	sc := a.withInput(input).Child(map[string]any{varName: varValue})
	return scope.ResolveToBool(a.eval, value, sc)
}

func (a scopedEvaluator) ResolveValue(value any, input json.RawMessage) (json.RawMessage, error) {
	resolved, err := scope.Resolve(a.eval, value, a.withInput(input))
	if err != nil {
		return nil, err
	}
	return json.Marshal(resolved)
}

func (a scopedEvaluator) ResolveList(value any, input json.RawMessage) ([]json.RawMessage, error) {
	resolved, err := scope.Resolve(a.eval, value, a.withInput(input))
	if err != nil {
		return nil, err
	}
	list, ok := resolved.([]any)
	if !ok {
		return nil, werrors.NewExpression(errNotAList, "")
	}
	out := make([]json.RawMessage, len(list))
	for i, item := range list {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// BindIteration returns an annotated snapshot of the current iteration's
// item/index for diagnostic/log purposes. The binding that actually
// governs expression evaluation inside the loop body is pushed into the
// For node's Scope by the executor's scope builder directly, since
// internal/tasks has no dependency on internal/scope's concrete Scope type.
func (a scopedEvaluator) BindIteration(each, at string, item json.RawMessage, index int, input json.RawMessage) (json.RawMessage, error) {
	var itemVal, base any
	_ = json.Unmarshal(item, &itemVal)
	_ = json.Unmarshal(input, &base)
	return json.Marshal(map[string]any{each: itemVal, at: index, "input": base})
}

var errNotAList = jsonListError{}

type jsonListError struct{}

func (jsonListError) Error() string { return "expression did not evaluate to a list" }
