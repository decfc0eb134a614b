package executor

import (
	"encoding/json"
	"fmt"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/tasks"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// resolvedStep is where a completed node's advancement goes next: either
// bubble a child's completion up to a position (the common case), or jump
// straight into a position with no pending completion (a named-sibling
// directive, or a catch body entry).
type resolvedStep struct {
	child *childCompletion
	next  node.Position
}

// resolveNext applies the `then` directive to a node that just finished:
// empty/continue bubbles to the parent, exit bubbles past the parent
// without invoking its own completion logic, end terminates the
// workflow, and a bare name jumps directly into that sibling.
func (e *Engine) resolveNext(rc *runCtx, n *node.Node, directive string, output json.RawMessage) (resolvedStep, bool, error) {
	if n.IsRoot() {
		return resolvedStep{}, true, nil
	}

	switch directive {
	case "", tasks.ThenContinue:
		return resolvedStep{child: &childCompletion{pos: n.Position, output: output}, next: n.Parent.Position}, false, nil

	case tasks.ThenExit:
		parent := n.Parent
		if parent.IsRoot() {
			return resolvedStep{}, true, nil
		}
		return resolvedStep{child: &childCompletion{pos: parent.Position, output: output}, next: parent.Parent.Position}, false, nil

	case tasks.ThenEnd:
		return resolvedStep{}, true, nil

	default:
		sibling, ok := n.Parent.ChildByName(directive)
		if !ok {
			return resolvedStep{}, false, werrors.NewConfiguration(fmt.Errorf("then: unknown sibling %q", directive), n.Position.String())
		}
		return resolvedStep{child: nil, next: sibling.Position}, false, nil
	}
}
