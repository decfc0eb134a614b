package tasks_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/internal/tasks"
)

func TestWaitRuntimeStartSuspendsWithParsedDelay(t *testing.T) {
	rt := tasks.NewWaitRuntime(&tasks.WaitConfig{Duration: "PT30S"})

	outcome, err := rt.Start(context.Background(), json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	assert.Equal(t, tasks.OutcomeSuspend, outcome.Kind)
	assert.Equal(t, tasks.SuspendWait, outcome.Reason)
	assert.Equal(t, 30*time.Second, outcome.Delay)
}

func TestWaitRuntimeStartRejectsUnparsableDuration(t *testing.T) {
	rt := tasks.NewWaitRuntime(&tasks.WaitConfig{Duration: "not-a-duration"})

	_, err := rt.Start(context.Background(), json.RawMessage(`null`))
	assert.Error(t, err)
}

func TestWaitRuntimeResumePassesThroughInput(t *testing.T) {
	rt := tasks.NewWaitRuntime(&tasks.WaitConfig{Duration: "PT1M"})
	input := json.RawMessage(`{"n":1}`)

	_, err := rt.Start(context.Background(), input)
	require.NoError(t, err)

	resumable, ok := rt.(tasks.Resumable)
	require.True(t, ok, "waitRuntime must implement Resumable")

	outcome, err := resumable.Resume(context.Background(), tasks.ExternalEvent{Kind: "timer"})
	require.NoError(t, err)
	assert.Equal(t, tasks.OutcomeDone, outcome.Kind)
	assert.JSONEq(t, string(input), string(outcome.Output))

	// A second Start after resuming (the executor re-entering this
	// node's runtime on the same traversal) must not suspend again.
	outcome, err = rt.Start(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, tasks.OutcomeDone, outcome.Kind)
}
