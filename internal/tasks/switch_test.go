package tasks_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/internal/tasks"
)

type fakeSwitchEvaluator struct {
	result bool
	err    error
}

func (f *fakeSwitchEvaluator) ResolveBool(value any, input json.RawMessage) (bool, error) {
	return f.result, f.err
}

func TestSwitchRuntimeSelectsFirstMatchingCase(t *testing.T) {
	cfg := &tasks.SwitchConfig{Cases: []tasks.SwitchCase{
		{Name: "isHigh", When: "${ .score > 50 }", Then: "high"},
		{Name: "isLow", Then: "low"},
	}}
	rt := tasks.NewSwitchRuntime(nil, cfg, &fakeSwitchEvaluator{result: true})

	outcome, err := rt.Start(context.Background(), json.RawMessage(`{"score":90}`))
	require.NoError(t, err)
	assert.Equal(t, tasks.OutcomeDone, outcome.Kind)
	assert.JSONEq(t, `{"score":90}`, string(outcome.Output))

	directing, ok := rt.(tasks.Directing)
	require.True(t, ok)
	assert.Equal(t, "high", directing.Directive())
}

func TestSwitchRuntimeFallsThroughToDefaultCase(t *testing.T) {
	cfg := &tasks.SwitchConfig{Cases: []tasks.SwitchCase{
		{Name: "isHigh", When: "${ .score > 50 }", Then: "high"},
		{Name: "otherwise", Then: "low"},
	}}
	rt := tasks.NewSwitchRuntime(nil, cfg, &fakeSwitchEvaluator{result: false})

	_, err := rt.Start(context.Background(), json.RawMessage(`{"score":10}`))
	require.NoError(t, err)

	directing := rt.(tasks.Directing)
	assert.Equal(t, "low", directing.Directive())
}

func TestSwitchRuntimeNoMatchDefaultsToContinue(t *testing.T) {
	cfg := &tasks.SwitchConfig{Cases: []tasks.SwitchCase{
		{Name: "isHigh", When: "${ .score > 50 }", Then: "high"},
	}}
	rt := tasks.NewSwitchRuntime(nil, cfg, &fakeSwitchEvaluator{result: false})

	_, err := rt.Start(context.Background(), json.RawMessage(`{"score":10}`))
	require.NoError(t, err)

	directing := rt.(tasks.Directing)
	assert.Equal(t, tasks.ThenContinue, directing.Directive())
}
