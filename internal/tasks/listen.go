package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
)

// EventFilter selects which events a Listen task matches.
type EventFilter struct {
	Type        string
	Source      string
	Correlation map[string]any
}

// ListenConfig suspends the workflow awaiting one or more events
// matched by filters with optional correlation.
type ListenConfig struct {
	Base
	Filters []EventFilter
}

type listenRuntime struct {
	input   json.RawMessage
	resumed json.RawMessage
	woken   bool
}

// NewListenRuntime constructs the Listen runtime wrapper.
func NewListenRuntime(cfg *ListenConfig) Runtime {
	return &listenRuntime{}
}

func (r *listenRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	r.input = input
	if r.woken {
		return Done(r.resumed), nil
	}
	return Suspend(SuspendListen), nil
}

func (r *listenRuntime) OnChildCompleted(ctx context.Context, _ node.Position, output json.RawMessage) (Outcome, error) {
	return Done(output), nil
}

func (r *listenRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	if r.resumed != nil {
		return r.resumed, nil
	}
	return r.input, nil
}

func (r *listenRuntime) Resume(ctx context.Context, event ExternalEvent) (Outcome, error) {
	r.woken = true
	r.resumed = event.Payload
	return Done(event.Payload), nil
}

var _ Resumable = (*listenRuntime)(nil)
