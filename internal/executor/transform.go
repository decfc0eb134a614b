package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/scope"
	"github.com/lyzr/workflowkernel/internal/tasks"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// startNode applies the first half of the per-node data-flow contract:
// validate raw input, transform it, evaluate `if`, then either run the
// task body or skip it.
func (e *Engine) startNode(ctx context.Context, rc *runCtx, n *node.Node, sc *scope.Scope, rt tasks.Runtime, rawInput json.RawMessage) (tasks.Outcome, error) {
	base, _ := n.Definition.(tasks.HasBase)
	var b tasks.Base
	if base != nil {
		b = *base.BaseFields()
	}

	if err := rc.env.validator().Validate(b.Input.Schema, rawInput); err != nil {
		return tasks.Outcome{}, werrors.NewValidation(err, n.Position.String())
	}

	transformedInput, err := resolveOrIdentity(rc.eval, b.Input.From, rawInput, sc)
	if err != nil {
		return tasks.Outcome{}, err
	}

	st := rc.ensureState(n.Position)
	st.RawInput = rawInput
	st.TransformedInput = transformedInput
	st.StartedAt = rc.now().Format(time.RFC3339)

	if b.If != nil {
		inputScope := sc.Child(map[string]any{"input": mustUnmarshalAny(transformedInput)})
		ok, err := scope.ResolveToBool(rc.eval, b.If, inputScope)
		if err != nil {
			return tasks.Outcome{}, err
		}
		if !ok {
			return tasks.Done(transformedInput), nil
		}
	}

	return rt.Start(ctx, transformedInput)
}

// finishNodeOutput applies steps 5-7: transform raw to transformed
// output, validate it, and if `export.as` is present, evaluate and
// replace the root context.
func (e *Engine) finishNodeOutput(rc *runCtx, n *node.Node, sc *scope.Scope, rawOutput json.RawMessage) (json.RawMessage, error) {
	base, _ := n.Definition.(tasks.HasBase)
	var b tasks.Base
	if base != nil {
		b = *base.BaseFields()
	}

	transformedOutput, err := resolveOrIdentity(rc.eval, b.Output.As, rawOutput, sc)
	if err != nil {
		return nil, err
	}

	if err := rc.env.validator().Validate(b.Output.Schema, transformedOutput); err != nil {
		return nil, werrors.NewValidation(err, n.Position.String())
	}

	st := rc.ensureState(n.Position)
	st.RawOutput = rawOutput
	st.TransformedOutput = transformedOutput

	if b.Export.As != nil {
		outputScope := sc.Child(map[string]any{"output": mustUnmarshalAny(transformedOutput)})
		exported, err := scope.Resolve(rc.eval, b.Export.As, outputScope)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(exported)
		if err != nil {
			return nil, err
		}
		if err := rc.env.validator().Validate(b.Export.Schema, raw); err != nil {
			return nil, werrors.NewValidation(err, n.Position.String())
		}
		rc.ensureState(node.Root).Context = raw
		rc.rootScope = scope.NewRoot(rc.ic.Workflow, mustUnmarshalAny(raw), rc.ic.Runtime, rc.ic.Secrets)
	}

	return transformedOutput, nil
}

func resolveOrIdentity(eval *scope.Evaluator, spec any, raw json.RawMessage, sc *scope.Scope) (json.RawMessage, error) {
	if spec == nil {
		return raw, nil
	}
	inputScope := sc.Child(map[string]any{"input": mustUnmarshalAny(raw)})
	resolved, err := scope.Resolve(eval, spec, inputScope)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resolved)
}

func mustUnmarshalAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	_ = json.Unmarshal(raw, &v)
	return v
}
