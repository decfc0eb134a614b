package executor_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/internal/executor"
	"github.com/lyzr/workflowkernel/internal/message"
	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/nodestate"
	"github.com/lyzr/workflowkernel/internal/scope"
	"github.com/lyzr/workflowkernel/internal/workflowdef"
)

func compile(t *testing.T, doc string) *workflowdef.Compiled {
	t.Helper()
	compiled, err := workflowdef.ParseAndCompile([]byte(doc))
	require.NoError(t, err)
	return compiled
}

func startMessage(t *testing.T, compiled *workflowdef.Compiled, rawInput string) *message.Message {
	t.Helper()
	states := map[string]*nodestate.State{
		node.Root.String(): {RawInput: json.RawMessage(rawInput)},
	}
	msg, err := message.NewCodec().Encode(compiled.Name, compiled.Version, states, node.Root)
	require.NoError(t, err)
	return msg
}

func newEngine(now func() time.Time) *executor.Engine {
	return executor.New(scope.NewEvaluator(), executor.Environment{}, now)
}

// Scenario 1: a Set pipeline runs every task in order and produces the
// last task's transformed output.
func TestScenarioSetPipeline(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: set-pipeline
  version: "1.0.0"
do:
  - first:
      set:
        a: 1
  - second:
      set:
        b: 2
`
	compiled := compile(t, doc)
	engine := newEngine(nil)
	_, result, err := engine.Advance(context.Background(), compiled, executor.InstanceContext{}, startMessage(t, compiled, "null"))
	require.NoError(t, err)
	require.Equal(t, executor.StatusCompleted, result.Status)
	assert.JSONEq(t, `{"b":2}`, string(result.Output))
}

// Scenario 2: a For loop runs its body once per item, binding the
// declared `each` alias into scope; the loop's own output is its last
// iteration's transformed output.
func TestScenarioForSum(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: for-sum
  version: "1.0.0"
do:
  - doubleAll:
      for:
        in: '${ .numbers }'
        each: n
      do:
        - double:
            set:
              value: '${ n * 2 }'
`
	compiled := compile(t, doc)
	engine := newEngine(nil)
	_, result, err := engine.Advance(context.Background(), compiled, executor.InstanceContext{}, startMessage(t, compiled, `{"numbers":[1,2,3]}`))
	require.NoError(t, err)
	require.Equal(t, executor.StatusCompleted, result.Status)
	assert.JSONEq(t, `{"value":6}`, string(result.Output))
}

// Scenario 3: a Switch selects a case by condition and its `then`
// jumps to a named sibling, skipping the tasks in between.
func TestScenarioSwitchThen(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: switch-then
  version: "1.0.0"
do:
  - route:
      switch:
        - isHigh:
            when: '${ .score > 50 }'
            then: high
        - isLow:
            then: low
  - high:
      set:
        bucket: high
      then: end
  - low:
      set:
        bucket: low
      then: end
`
	compiled := compile(t, doc)
	engine := newEngine(nil)
	_, result, err := engine.Advance(context.Background(), compiled, executor.InstanceContext{}, startMessage(t, compiled, `{"score":90}`))
	require.NoError(t, err)
	require.Equal(t, executor.StatusCompleted, result.Status)
	assert.JSONEq(t, `{"bucket":"high"}`, string(result.Output))
}

// Scenario 4: a Try catches a raised error by status and runs its
// catch body instead of faulting the workflow.
func TestScenarioTryCatchByStatus(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: try-catch-status
  version: "1.0.0"
do:
  - attempt:
      try:
        - boom:
            raise:
              error:
                status: 500
                title: boom
      catch:
        errors:
          with:
            status: 500
        do:
          - recovered:
              set:
                caught: true
`
	compiled := compile(t, doc)
	engine := newEngine(nil)
	_, result, err := engine.Advance(context.Background(), compiled, executor.InstanceContext{}, startMessage(t, compiled, "null"))
	require.NoError(t, err)
	require.Equal(t, executor.StatusCompleted, result.Status)
	assert.JSONEq(t, `{"caught":true}`, string(result.Output))
}

// Scenario 4b: a Try catches an error whose status filter does not
// match and rethrows, faulting the workflow.
func TestScenarioTryCatchStatusMismatchFaults(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: try-catch-mismatch
  version: "1.0.0"
do:
  - attempt:
      try:
        - boom:
            raise:
              error:
                status: 500
                title: boom
      catch:
        errors:
          with:
            status: 404
        do:
          - recovered:
              set:
                caught: true
`
	compiled := compile(t, doc)
	engine := newEngine(nil)
	_, result, err := engine.Advance(context.Background(), compiled, executor.InstanceContext{}, startMessage(t, compiled, "null"))
	require.NoError(t, err)
	require.Equal(t, executor.StatusFaulted, result.Status)
	require.NotNil(t, result.Fault)
	assert.Equal(t, 500, result.Fault.Status)
}

// Scenario 5: a Try's retry policy exhausts its attempt limit and
// falls through to completion with no catch body, rather than
// retrying forever.
func TestScenarioTryRetryExhaustion(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: try-retry-exhaustion
  version: "1.0.0"
do:
  - attempt:
      try:
        - boom:
            raise:
              error:
                status: 500
                title: boom
      catch:
        errors:
          with:
            status: 500
        retry:
          delay: PT0.01S
          limit:
            attempt:
              count: 1
`
	compiled := compile(t, doc)
	engine := newEngine(nil)
	msg := startMessage(t, compiled, "null")

	// First advancement: the raise is caught, a retry is scheduled, and
	// the instance suspends with a non-zero ResumeAt (the same ResumeAt
	// contract Wait durability depends on).
	msg, result, err := engine.Advance(context.Background(), compiled, executor.InstanceContext{}, msg)
	require.NoError(t, err)
	require.Equal(t, executor.StatusSuspended, result.Status)
	require.False(t, result.ResumeAt.IsZero())

	// Second advancement (the outbox poller's redrive, once due): the
	// retry attempt limit is now exhausted, so the Try falls through
	// with no output and the workflow completes.
	_, result, err = engine.Advance(context.Background(), compiled, executor.InstanceContext{}, msg)
	require.NoError(t, err)
	require.Equal(t, executor.StatusCompleted, result.Status)
}

// Scenario 6: Wait durability. A Wait task suspends with a non-zero
// ResumeAt; redriving the same message (as the outbox poller would,
// once ResumeAt has elapsed) completes the workflow instead of
// suspending a second time.
func TestScenarioWaitDurability(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: wait-durability
  version: "1.0.0"
do:
  - pause:
      wait:
        duration: PT30S
  - afterWait:
      set:
        resumed: true
`
	compiled := compile(t, doc)
	fixedNow := func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	engine := newEngine(fixedNow)
	msg := startMessage(t, compiled, "null")

	msg, result, err := engine.Advance(context.Background(), compiled, executor.InstanceContext{}, msg)
	require.NoError(t, err)
	require.Equal(t, executor.StatusSuspended, result.Status)
	assert.Equal(t, "wait", result.SuspendReason)
	require.False(t, result.ResumeAt.IsZero(), "a Wait suspension must carry a non-zero ResumeAt or the outbox poller can never reclaim it")
	assert.Equal(t, fixedNow().Add(30*time.Second), result.ResumeAt)

	// Redrive via Advance, exactly as the outbox poller does once
	// ResumeAt has elapsed — not Resume, since nothing external woke
	// this node.
	_, result, err = engine.Advance(context.Background(), compiled, executor.InstanceContext{}, msg)
	require.NoError(t, err)
	require.Equal(t, executor.StatusCompleted, result.Status, "a redriven Wait must complete, not suspend again")
	assert.JSONEq(t, `{"resumed":true}`, string(result.Output))
}
