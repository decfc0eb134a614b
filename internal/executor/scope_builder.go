package executor

import (
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/nodestate"
	"github.com/lyzr/workflowkernel/internal/scope"
	"github.com/lyzr/workflowkernel/internal/tasks"
)

// buildScope assembles n's evaluation Scope by replaying every
// ancestor's task descriptor (and, where relevant, its For/Try special
// bindings) from root down to n, then pushing n's own descriptor last
// so it wins on conflicting keys.
func (rc *runCtx) buildScope(n *node.Node) *scope.Scope {
	sc := rc.rootScope
	for _, apos := range n.Position.Ancestors() {
		anode := rc.tree.NodeAt(apos)
		if anode == nil {
			continue
		}
		sc = rc.pushNodeScope(sc, anode)
	}
	return rc.pushNodeScope(sc, n)
}

func (rc *runCtx) pushNodeScope(sc *scope.Scope, n *node.Node) *scope.Scope {
	st := rc.states[n.Position.String()]

	var input, output any
	startedAt := ""
	if st != nil {
		_ = json.Unmarshal(st.TransformedInput, &input)
		_ = json.Unmarshal(st.TransformedOutput, &output)
		startedAt = st.StartedAt
	}
	sc = sc.WithTaskDescriptor(n.Name, n.Position.String(), n.Definition, input, output, startedAt)

	if n.Kind == node.KindFor && st != nil {
		if cfg, ok := n.Definition.(*tasks.ForConfig); ok {
			items, _ := decodeForState(st)
			if st.IterationCursor < len(items) {
				var item any
				_ = json.Unmarshal(items[st.IterationCursor], &item)
				each, at := cfg.Each, cfg.At
				if each == "" {
					each = "item"
				}
				if at == "" {
					at = "index"
				}
				sc = sc.Child(map[string]any{each: item, at: st.IterationCursor})
			}
		}
	}

	if n.Kind == node.KindTry && st != nil && len(st.CaughtError) > 0 {
		if cfg, ok := n.Definition.(*tasks.TryConfig); ok {
			alias := cfg.Catch.As
			if alias == "" {
				alias = "error"
			}
			var errVal any
			_ = json.Unmarshal(st.CaughtError, &errVal)
			sc = sc.Child(map[string]any{alias: errVal})
		}
	}

	return sc
}

// ensureState returns the mutable NodeState for pos, creating it if absent.
func (rc *runCtx) ensureState(pos node.Position) *nodestate.State {
	key := pos.String()
	st, ok := rc.states[key]
	if !ok {
		st = &nodestate.State{}
		rc.states[key] = st
	}
	return st
}
