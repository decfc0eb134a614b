package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// WaitConfig parses an ISO-8601 duration and suspends the workflow
// until now+duration; on resume it passes through its transformed
// input as raw output.
type WaitConfig struct {
	Base
	Duration string // ISO-8601, e.g. "PT30S"
}

type waitRuntime struct {
	cfg       *WaitConfig
	input     json.RawMessage
	resumed   bool
	suspended bool
}

// NewWaitRuntime constructs the Wait runtime wrapper.
func NewWaitRuntime(cfg *WaitConfig) Runtime {
	return &waitRuntime{cfg: cfg}
}

// NewWaitRuntimeResumed rebuilds a Wait runtime that already suspended
// once. The outbox poller only reclaims a delayed node once its
// duration has elapsed, so a rebuilt Start must complete immediately
// rather than parse the duration and suspend a second time.
func NewWaitRuntimeResumed(cfg *WaitConfig) Runtime {
	return &waitRuntime{cfg: cfg, resumed: true}
}

func (r *waitRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	r.input = input
	if r.resumed {
		return Done(input), nil
	}
	delay, err := werrors.ParseISO8601Duration(r.cfg.Duration)
	if err != nil {
		return Outcome{}, err
	}
	r.suspended = true
	return SuspendAfter(SuspendWait, delay), nil
}

// Snapshot reports whether this advancement suspended, so the executor
// can persist that the next redrive should complete outright.
func (r *waitRuntime) Snapshot() bool {
	return r.suspended
}

func (r *waitRuntime) OnChildCompleted(ctx context.Context, _ node.Position, output json.RawMessage) (Outcome, error) {
	return Done(output), nil
}

func (r *waitRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return r.input, nil
}

func (r *waitRuntime) Resume(ctx context.Context, event ExternalEvent) (Outcome, error) {
	r.resumed = true
	return Done(r.input), nil
}

var _ Resumable = (*waitRuntime)(nil)
