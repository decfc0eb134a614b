// Package tasks implements the per-task-kind runtime state machines
// Do, For, Switch, Fork, Try, Set, Raise, Wait, Call,
// Listen, Emit. Each kind exposes a Config (decoded from the workflow
// document) and a Runtime implementing the common hook set; the
// executor (internal/executor) applies the shared data-flow contract
// around these hooks.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// OutcomeKind discriminates an Outcome's variant.
type OutcomeKind int

const (
	OutcomeAdvance OutcomeKind = iota
	OutcomeSuspend
	OutcomeRaise
	OutcomeDone
)

// SuspendReason names why an advancement returned control to the caller.
type SuspendReason string

const (
	SuspendWait       SuspendReason = "wait"
	SuspendRetry      SuspendReason = "retry"
	SuspendCall       SuspendReason = "call"
	SuspendListen     SuspendReason = "listen"
	SuspendForkBranch SuspendReason = "fork_branch"
)

// Outcome is the sum type a Runtime hook returns: either advance to a
// specific next position, suspend with a reason, raise an Error, or
// signal that this node (and everything above it) is fully done.
type Outcome struct {
	Kind   OutcomeKind
	Next   node.Position
	Reason SuspendReason
	Delay  time.Duration // for OutcomeSuspend: how long until the poller should reclaim this node
	Err    *werrors.Error
	Output json.RawMessage
}

func Advance(next node.Position) Outcome { return Outcome{Kind: OutcomeAdvance, Next: next} }
func Suspend(reason SuspendReason) Outcome {
	return Outcome{Kind: OutcomeSuspend, Reason: reason}
}

// SuspendAfter suspends with a delay the outbox poller should wait out
// before reclaiming the node, e.g. a Wait task's duration.
func SuspendAfter(reason SuspendReason, delay time.Duration) Outcome {
	return Outcome{Kind: OutcomeSuspend, Reason: reason, Delay: delay}
}
func Raise(err *werrors.Error) Outcome { return Outcome{Kind: OutcomeRaise, Err: err} }
func Done(output json.RawMessage) Outcome {
	return Outcome{Kind: OutcomeDone, Output: output}
}

// Runtime is the common interface every task kind's runtime wrapper
// implements. start/onChildCompleted/complete never touch schema
// validation or input/output transforms directly — the executor
// applies that contract around them.
type Runtime interface {
	// Start begins execution with the node's already-transformed input.
	Start(ctx context.Context, input json.RawMessage) (Outcome, error)
	// OnChildCompleted is invoked when a structural child (by position)
	// finishes, carrying its transformed output.
	OnChildCompleted(ctx context.Context, child node.Position, output json.RawMessage) (Outcome, error)
	// Complete produces the node's raw output once its body is done.
	Complete(ctx context.Context) (json.RawMessage, error)
}

// Resumable is implemented by Runtimes that can be woken by an
// external event after suspending (Wait and Listen).
type Resumable interface {
	Resume(ctx context.Context, event ExternalEvent) (Outcome, error)
}

// ExternalEvent carries whatever woke a suspended node: an elapsed
// timer, a retry due-time, a received event, or a call's result.
type ExternalEvent struct {
	Kind    string // "timer" | "event" | "call_result"
	Payload json.RawMessage
}

// FlowDirective is a sibling name or one of continue/exit/end.
type FlowDirective struct {
	Raw string
}

const (
	ThenContinue = "continue"
	ThenExit     = "exit"
	ThenEnd      = "end"
)

func (f FlowDirective) IsControl() bool {
	return f.Raw == ThenContinue || f.Raw == ThenExit || f.Raw == ThenEnd
}
