package tasks

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// CatchConfig is a Try's `catch` clause.
type CatchConfig struct {
	As         string // scope alias for the caught error, default "error"
	Errors     werrors.Filter
	When       any
	ExceptWhen any
	Retry      *werrors.RetryPolicy
	Do         []*node.Node // catch.do body, absent means no further body
}

// TryConfig runs its Try body (the node's Children); on error it
// consults Catch 
type TryConfig struct {
	Base
	Catch CatchConfig
}

// CatchEvaluator is the narrow dependency tryRuntime needs to evaluate
// `when`/`exceptWhen` with the caught error bound into scope.
type CatchEvaluator interface {
	ResolveBoolWithVar(value any, varName string, varValue any, input json.RawMessage) (bool, error)
}

// CatchDecisionKind discriminates how a Try disposes of a caught error.
type CatchDecisionKind int

const (
	CatchRethrow CatchDecisionKind = iota
	CatchRetry
	CatchRunBody
	CatchCompleteNoOutput
)

// CatchDecision is tryRuntime.Catch's result; the executor acts on it
// (scheduling a retry resumption, advancing into the catch body, or
// completing/rethrowing).
type CatchDecision struct {
	Kind           CatchDecisionKind
	Delay          time.Duration
	CatchBodyEntry node.Position
}

// Catcher is implemented by Try's Runtime. The executor type-asserts a
// Runtime against Catcher when propagating a raised error up the
// ancestor chain looking for a task that can dispose of it.
type Catcher interface {
	Catch(ctx context.Context, raised *werrors.Error, attemptIndex int, elapsed time.Duration, rng *rand.Rand) (CatchDecision, error)
}

type tryRuntime struct {
	self  *node.Node
	cfg   *TryConfig
	eval  CatchEvaluator
	input json.RawMessage
	last  json.RawMessage
}

// NewTryRuntime constructs the Try runtime wrapper.
func NewTryRuntime(self *node.Node, cfg *TryConfig, eval CatchEvaluator) Runtime {
	return &tryRuntime{self: self, cfg: cfg, eval: eval}
}

func (r *tryRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	r.input = input
	r.last = input
	if len(r.self.Children) == 0 {
		return Done(input), nil
	}
	return Advance(r.self.Children[0].Position), nil
}

func (r *tryRuntime) OnChildCompleted(ctx context.Context, child node.Position, output json.RawMessage) (Outcome, error) {
	r.last = output
	idx := childIndexOf(r.self, child)
	if idx < 0 {
		return Outcome{}, errInvalidChild
	}
	if idx+1 < len(r.self.Children) {
		return Advance(r.self.Children[idx+1].Position), nil
	}
	return Done(output), nil
}

func (r *tryRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return r.last, nil
}

// Catch implements the catch algorithm  step 1-6, minus
// the attempt/duration bookkeeping which the executor owns (it lives
// in the node's persisted NodeState, not in this per-advancement
// Runtime instance).
func (r *tryRuntime) Catch(ctx context.Context, raised *werrors.Error, attemptIndex int, elapsed time.Duration, rng *rand.Rand) (CatchDecision, error) {
	if !r.cfg.Catch.Errors.Matches(raised) {
		return CatchDecision{Kind: CatchRethrow}, nil
	}

	alias := r.cfg.Catch.As
	if alias == "" {
		alias = "error"
	}

	if r.cfg.Catch.When != nil {
		ok, err := r.eval.ResolveBoolWithVar(r.cfg.Catch.When, alias, raised, r.last)
		if err != nil {
			return CatchDecision{}, err
		}
		if !ok {
			return CatchDecision{Kind: CatchRethrow}, nil
		}
	}
	if r.cfg.Catch.ExceptWhen != nil {
		ok, err := r.eval.ResolveBoolWithVar(r.cfg.Catch.ExceptWhen, alias, raised, r.last)
		if err != nil {
			return CatchDecision{}, err
		}
		if ok {
			return CatchDecision{Kind: CatchRethrow}, nil
		}
	}

	retryAllowed, err := true, error(nil)
	if retry := r.cfg.Catch.Retry; retry != nil && retry.When != "" {
		retryAllowed, err = r.eval.ResolveBoolWithVar(retry.When, alias, raised, r.last)
	}
	if retry := r.cfg.Catch.Retry; err == nil && retryAllowed && retry != nil && retry.ExceptWhen != "" {
		var except bool
		except, err = r.eval.ResolveBoolWithVar(retry.ExceptWhen, alias, raised, r.last)
		retryAllowed = !except
	}
	if err != nil {
		return CatchDecision{}, err
	}

	if retryAllowed && r.cfg.Catch.Retry != nil && !r.cfg.Catch.Retry.LimitReached(attemptIndex, elapsed) {
		delay, err := r.cfg.Catch.Retry.NextDelay(attemptIndex, rng)
		if err != nil {
			return CatchDecision{}, err
		}
		return CatchDecision{Kind: CatchRetry, Delay: delay}, nil
	}

	if len(r.cfg.Catch.Do) > 0 {
		return CatchDecision{Kind: CatchRunBody, CatchBodyEntry: r.cfg.Catch.Do[0].Position}, nil
	}

	return CatchDecision{Kind: CatchCompleteNoOutput}, nil
}

var _ Catcher = (*tryRuntime)(nil)
