package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lyzr/workflowkernel/internal/message"
	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/tasks"
	"github.com/lyzr/workflowkernel/internal/werrors"
	"github.com/lyzr/workflowkernel/internal/workflowdef"
)

type propagationKind int

const (
	propagationFaulted propagationKind = iota
	propagationSuspendRetry
	propagationContinue
	propagationTerminal
)

// propagationDecision is what the main loop does next after a raised
// error has been walked up the ancestor chain looking for a Try that
// can dispose of it.
type propagationDecision struct {
	kind propagationKind

	// propagationContinue
	childDone *childCompletion
	next      node.Position

	// propagationSuspendRetry
	resumePos node.Position
	delay     time.Duration

	// propagationTerminal
	terminalOutput json.RawMessage
}

// propagate walks n's ancestors from nearest to farthest, handing
// raised to the first Try whose Catch accepts it. A Try that
// rethrows is skipped in favor of the next ancestor up; reaching the root
// without a catch faults the whole workflow.
func (e *Engine) propagate(ctx context.Context, codec message.Codec, compiled *workflowdef.Compiled, rc *runCtx, n *node.Node, raised *werrors.Error) (propagationDecision, error) {
	ancestors := n.Position.Ancestors()
	for i := len(ancestors) - 1; i >= 0; i-- {
		apos := ancestors[i]
		a := rc.tree.NodeAt(apos)
		if a == nil || a.Kind != node.KindTry {
			continue
		}

		sc := rc.buildScope(a)
		ev := newScopedEvaluator(e.eval, sc)
		ast := rc.states[apos.String()]
		rt, err := e.buildRuntime(a, ev, ast)
		if err != nil {
			return propagationDecision{}, err
		}
		catcher, ok := rt.(tasks.Catcher)
		if !ok {
			continue
		}

		attemptIndex := 0
		var elapsed time.Duration
		if ast != nil {
			attemptIndex = ast.AttemptIndex
			if ast.StartedAt != "" {
				if started, perr := time.Parse(time.RFC3339, ast.StartedAt); perr == nil {
					elapsed = rc.now().Sub(started)
				}
			}
		}
		rng := werrors.NewDeterministicRNG(rc.ic.ID, apos.String())

		decision, err := catcher.Catch(ctx, raised, attemptIndex, elapsed, rng)
		if err != nil {
			return propagationDecision{}, err
		}

		switch decision.Kind {
		case tasks.CatchRethrow:
			continue

		case tasks.CatchRetry:
			ast = rc.ensureState(apos)
			ast.AttemptIndex++
			ast.NextDelayMillis = decision.Delay.Milliseconds()
			errRaw, merr := json.Marshal(raised)
			if merr != nil {
				return propagationDecision{}, merr
			}
			ast.CaughtError = errRaw
			resumePos := apos
			if len(a.Children) > 0 {
				resumePos = a.Children[0].Position
			}
			return propagationDecision{kind: propagationSuspendRetry, resumePos: resumePos, delay: decision.Delay}, nil

		case tasks.CatchRunBody:
			ast = rc.ensureState(apos)
			errRaw, merr := json.Marshal(raised)
			if merr != nil {
				return propagationDecision{}, merr
			}
			ast.CaughtError = errRaw
			return propagationDecision{kind: propagationContinue, childDone: nil, next: decision.CatchBodyEntry}, nil

		case tasks.CatchCompleteNoOutput:
			transformedOutput, err := e.finishNodeOutput(rc, a, sc, nil)
			if err != nil {
				return propagationDecision{}, err
			}
			directive := tasks.ResolveDirective(a.Definition, rt)
			resolved, terminal, err := e.resolveNext(rc, a, directive, transformedOutput)
			if err != nil {
				return propagationDecision{}, err
			}
			if terminal {
				return propagationDecision{kind: propagationTerminal, terminalOutput: transformedOutput}, nil
			}
			return propagationDecision{kind: propagationContinue, childDone: resolved.child, next: resolved.next}, nil
		}
	}

	return propagationDecision{kind: propagationFaulted}, nil
}
