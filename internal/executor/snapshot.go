package executor

import (
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/nodestate"
)

type forSnapshotter interface {
	Snapshot() (items []json.RawMessage, idx int, last json.RawMessage)
}

type forkSnapshotter interface {
	Snapshot() map[string]json.RawMessage
}

type waitSnapshotter interface {
	Snapshot() bool
}

// persistRuntimeSnapshot captures the cross-advancement state of For,
// Fork, and Wait runtimes into the node's NodeState; other kinds need
// nothing beyond the standard input/output bookkeeping.
func persistRuntimeSnapshot(rt any, st *nodestate.State) {
	switch r := rt.(type) {
	case forSnapshotter:
		items, idx, last := r.Snapshot()
		encodeForState(st, items, idx, last)
	case forkSnapshotter:
		encodeForkState(st, r.Snapshot())
	case waitSnapshotter:
		if r.Snapshot() {
			encodeWaitState(st)
		}
	}
}
