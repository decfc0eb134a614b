package executor

import (
	"encoding/json"
	"fmt"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/nodestate"
	"github.com/lyzr/workflowkernel/internal/tasks"
)

// buildRuntime constructs the tasks.Runtime for n, rehydrating the
// handful of task kinds whose forward progress depends on state that
// cannot be derived from the node tree alone (For's cursor/items/
// accumulator, Fork's per-branch completions).
func (e *Engine) buildRuntime(n *node.Node, ev scopedEvaluator, st *nodestate.State) (tasks.Runtime, error) {
	switch n.Kind {
	case node.KindDo:
		return tasks.NewDoRuntime(n), nil

	case node.KindFor:
		cfg, ok := n.Definition.(*tasks.ForConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a ForConfig", n.Position)
		}
		if st != nil && len(st.Variables) > 0 {
			items, last := decodeForState(st)
			return tasks.NewForRuntimeResumed(n, cfg, ev, items, st.IterationCursor, last), nil
		}
		return tasks.NewForRuntime(n, cfg, ev), nil

	case node.KindSwitch:
		cfg, ok := n.Definition.(*tasks.SwitchConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a SwitchConfig", n.Position)
		}
		return tasks.NewSwitchRuntime(n, cfg, ev), nil

	case node.KindFork:
		cfg, ok := n.Definition.(*tasks.ForkConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a ForkConfig", n.Position)
		}
		if st != nil && len(st.Variables) > 0 {
			return tasks.NewForkRuntimeResumed(n, cfg, decodeForkState(st)), nil
		}
		return tasks.NewForkRuntime(n, cfg), nil

	case node.KindTry:
		cfg, ok := n.Definition.(*tasks.TryConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a TryConfig", n.Position)
		}
		return tasks.NewTryRuntime(n, cfg, ev), nil

	case node.KindSet:
		cfg, ok := n.Definition.(*tasks.SetConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a SetConfig", n.Position)
		}
		return tasks.NewSetRuntime(cfg, ev), nil

	case node.KindRaise:
		cfg, ok := n.Definition.(*tasks.RaiseConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a RaiseConfig", n.Position)
		}
		return tasks.NewRaiseRuntime(n, cfg), nil

	case node.KindWait:
		cfg, ok := n.Definition.(*tasks.WaitConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a WaitConfig", n.Position)
		}
		if st != nil {
			if _, woken := st.Variables["woken"]; woken {
				return tasks.NewWaitRuntimeResumed(cfg), nil
			}
		}
		return tasks.NewWaitRuntime(cfg), nil

	case node.KindCall:
		cfg, ok := n.Definition.(*tasks.CallConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a CallConfig", n.Position)
		}
		return tasks.NewCallRuntime(n, cfg, e.env.Caller), nil

	case node.KindListen:
		cfg, ok := n.Definition.(*tasks.ListenConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not a ListenConfig", n.Position)
		}
		return tasks.NewListenRuntime(cfg), nil

	case node.KindEmit:
		cfg, ok := n.Definition.(*tasks.EmitConfig)
		if !ok {
			return nil, fmt.Errorf("node %s: definition is not an EmitConfig", n.Position)
		}
		return tasks.NewEmitRuntime(n, cfg, e.env.EventSink, ev, e.env.NewID), nil

	default:
		return nil, fmt.Errorf("node %s: unrecognized kind %q", n.Position, n.Kind)
	}
}

func decodeForState(st *nodestate.State) (items []json.RawMessage, last json.RawMessage) {
	if raw, ok := st.Variables["items"]; ok {
		_ = json.Unmarshal(raw, &items)
	}
	last = st.Variables["last"]
	return items, last
}

func encodeForState(st *nodestate.State, items []json.RawMessage, idx int, last json.RawMessage) {
	raw, _ := json.Marshal(items)
	if st.Variables == nil {
		st.Variables = make(map[string]json.RawMessage, 2)
	}
	st.Variables["items"] = raw
	st.Variables["last"] = last
	st.IterationCursor = idx
}

func encodeWaitState(st *nodestate.State) {
	if st.Variables == nil {
		st.Variables = make(map[string]json.RawMessage, 1)
	}
	st.Variables["woken"] = json.RawMessage("true")
}

func decodeForkState(st *nodestate.State) map[string]json.RawMessage {
	completed := make(map[string]json.RawMessage)
	if raw, ok := st.Variables["completed"]; ok {
		_ = json.Unmarshal(raw, &completed)
	}
	return completed
}

func encodeForkState(st *nodestate.State, completed map[string]json.RawMessage) {
	raw, _ := json.Marshal(completed)
	if st.Variables == nil {
		st.Variables = make(map[string]json.RawMessage, 1)
	}
	st.Variables["completed"] = raw
}
