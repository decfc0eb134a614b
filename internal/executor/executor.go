package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lyzr/workflowkernel/internal/message"
	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/nodestate"
	"github.com/lyzr/workflowkernel/internal/scope"
	"github.com/lyzr/workflowkernel/internal/tasks"
	"github.com/lyzr/workflowkernel/internal/werrors"
	"github.com/lyzr/workflowkernel/internal/workflowdef"
)

// Engine runs single advancements against a compiled workflow tree.
type Engine struct {
	eval *scope.Evaluator
	env  Environment
	now  func() time.Time
}

// New constructs an Engine. now defaults to time.Now; tests may inject
// a fixed clock for reproducible StartedAt timestamps.
func New(eval *scope.Evaluator, env Environment, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{eval: eval, env: env, now: now}
}

// InstanceContext carries the values the root Scope exposes, per
// workflow instance: the workflow descriptor, the engine's
// own runtime descriptor, and opaque secrets never echoed back out.
type InstanceContext struct {
	ID       string
	Workflow any
	Runtime  any
	Secrets  any
}

type runCtx struct {
	tree      *node.Tree
	states    map[string]*nodestate.State
	rootScope *scope.Scope
	eval      *scope.Evaluator
	env       Environment
	ic        InstanceContext
	now       func() time.Time
}

func (rc *runCtx) rootContext() any {
	st := rc.states[node.Root.String()]
	if st == nil || len(st.Context) == 0 {
		return map[string]any{}
	}
	return mustUnmarshalAny(st.Context)
}

type childCompletion struct {
	pos    node.Position
	output json.RawMessage
}

// Advance performs one synchronous traversal of msg's workflow instance,
// starting at its active position, until it hits a suspension point,
// faults, or completes.
func (e *Engine) Advance(ctx context.Context, compiled *workflowdef.Compiled, ic InstanceContext, msg *message.Message) (*message.Message, Result, error) {
	return e.run(ctx, compiled, ic, msg, nil)
}

// Resume wakes a suspended leaf (Wait, Listen) with
// an external event and then continues the same traversal.
func (e *Engine) Resume(ctx context.Context, compiled *workflowdef.Compiled, ic InstanceContext, msg *message.Message, event tasks.ExternalEvent) (*message.Message, Result, error) {
	return e.run(ctx, compiled, ic, msg, &event)
}

func (e *Engine) run(ctx context.Context, compiled *workflowdef.Compiled, ic InstanceContext, msg *message.Message, event *tasks.ExternalEvent) (*message.Message, Result, error) {
	codec := message.NewCodec()
	states, active, err := codec.Decode(msg)
	if err != nil {
		return nil, Result{}, fmt.Errorf("decode message: %w", err)
	}

	rc := &runCtx{tree: compiled.Tree, states: states, eval: e.eval, env: e.env, ic: ic, now: e.now}
	rc.rootScope = scope.NewRoot(ic.Workflow, rc.rootContext(), ic.Runtime, ic.Secrets)

	pos := active
	var childDone *childCompletion
	firstStep := true

	for {
		n := rc.tree.NodeAt(pos)
		if n == nil {
			return nil, Result{}, fmt.Errorf("position %s not found in workflow %s@%s", pos, compiled.Name, compiled.Version)
		}
		sc := rc.buildScope(n)
		ev := newScopedEvaluator(e.eval, sc)
		st := rc.states[pos.String()]
		rt, err := e.buildRuntime(n, ev, st)
		if err != nil {
			return nil, Result{}, err
		}

		var outcome tasks.Outcome
		switch {
		case firstStep && event != nil:
			resumable, ok := rt.(tasks.Resumable)
			if !ok {
				return nil, Result{}, fmt.Errorf("node %s is not resumable", pos)
			}
			outcome, err = resumable.Resume(ctx, *event)
		case childDone != nil:
			outcome, err = rt.OnChildCompleted(ctx, childDone.pos, childDone.output)
		default:
			rawInput := rawInputFor(rc, n)
			outcome, err = e.startNode(ctx, rc, n, sc, rt, rawInput)
		}
		firstStep = false
		if err != nil {
			return nil, Result{}, err
		}

		persistRuntimeSnapshot(rt, rc.ensureState(pos))

		switch outcome.Kind {
		case tasks.OutcomeAdvance:
			childDone = nil
			pos = outcome.Next
			continue

		case tasks.OutcomeSuspend:
			msgOut, err := rc.encodeMessage(codec, compiled, pos)
			if err != nil {
				return nil, Result{}, err
			}
			result := Result{Status: StatusSuspended, SuspendReason: string(outcome.Reason)}
			if outcome.Delay > 0 {
				result.ResumeAt = rc.now().Add(outcome.Delay)
			}
			return msgOut, result, nil

		case tasks.OutcomeRaise:
			decision, err := e.propagate(ctx, codec, compiled, rc, n, outcome.Err)
			if err != nil {
				return nil, Result{}, err
			}
			switch decision.kind {
			case propagationFaulted:
				return nil, Result{Status: StatusFaulted, Fault: outcome.Err}, nil
			case propagationSuspendRetry:
				msgOut, rerr := rc.encodeMessage(codec, compiled, decision.resumePos)
				if rerr != nil {
					return nil, Result{}, rerr
				}
				return msgOut, Result{Status: StatusSuspended, SuspendReason: string(tasks.SuspendRetry), ResumeAt: rc.now().Add(decision.delay)}, nil
			case propagationTerminal:
				return e.finishWorkflow(codec, compiled, rc, decision.terminalOutput)
			default: // propagationContinue
				childDone = decision.childDone
				pos = decision.next
				continue
			}

		case tasks.OutcomeDone:
			transformedOutput, err := e.finishNodeOutput(rc, n, sc, outcome.Output)
			if err != nil {
				return nil, Result{}, err
			}
			directive := tasks.ResolveDirective(n.Definition, rt)
			resolved, terminal, err := e.resolveNext(rc, n, directive, transformedOutput)
			if err != nil {
				return nil, Result{}, err
			}
			if terminal {
				return e.finishWorkflow(codec, compiled, rc, transformedOutput)
			}
			childDone = resolved.child
			pos = resolved.next
			continue
		}
	}
}

// rawInputFor returns the input a freshly-Started node should see: the
// transformed output of the sibling just before it in its parent's
// Children where that sibling has one, otherwise its parent's
// transformed input, or the workflow's own raw input at the root.
func rawInputFor(rc *runCtx, n *node.Node) json.RawMessage {
	if n.IsRoot() {
		root := rc.states[node.Root.String()]
		if root != nil && len(root.RawInput) > 0 {
			return root.RawInput
		}
		return json.RawMessage("null")
	}
	siblings := n.Parent.Children
	for i := 1; i < len(siblings); i++ {
		if siblings[i] == n {
			if prev := rc.states[siblings[i-1].Position.String()]; prev != nil && len(prev.TransformedOutput) > 0 {
				return prev.TransformedOutput
			}
			break
		}
	}
	if st := rc.states[n.Parent.Position.String()]; st != nil && len(st.TransformedInput) > 0 {
		return st.TransformedInput
	}
	return json.RawMessage("null")
}

func (rc *runCtx) encodeMessage(codec message.Codec, compiled *workflowdef.Compiled, active node.Position) (*message.Message, error) {
	return codec.Encode(compiled.Name, compiled.Version, rc.states, active)
}

func (e *Engine) finishWorkflow(codec message.Codec, compiled *workflowdef.Compiled, rc *runCtx, rootOutput json.RawMessage) (*message.Message, Result, error) {
	transformed, err := resolveOrIdentity(e.eval, compiled.Output.As, rootOutput, rc.rootScope)
	if err != nil {
		return nil, Result{}, err
	}
	if err := rc.env.validator().Validate(compiled.Output.Schema, transformed); err != nil {
		return nil, Result{}, werrors.NewValidation(err, node.Root.String())
	}
	msgOut, err := rc.encodeMessage(codec, compiled, node.Root)
	if err != nil {
		return nil, Result{}, err
	}
	return msgOut, Result{Status: StatusCompleted, Output: transformed}, nil
}
