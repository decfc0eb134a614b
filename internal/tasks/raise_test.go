package tasks_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/tasks"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

func TestRaiseRuntimeAlwaysRaises(t *testing.T) {
	self := node.NewNode(node.Position{"do", "0"}, node.KindRaise, "boom", nil, nil, nil)
	cfg := &tasks.RaiseConfig{Error: werrors.Error{Status: 500, Title: "boom"}}
	rt := tasks.NewRaiseRuntime(self, cfg)

	outcome, err := rt.Start(context.Background(), json.RawMessage(`null`))
	require.NoError(t, err)
	require.Equal(t, tasks.OutcomeRaise, outcome.Kind)
	require.NotNil(t, outcome.Err)
	assert.Equal(t, 500, outcome.Err.Status)
	assert.Equal(t, "boom", outcome.Err.Title)
	assert.Equal(t, self.Position.String(), outcome.Err.Instance)
}

func TestRaiseRuntimeWithOverridesCatalogueDefaults(t *testing.T) {
	self := node.NewNode(node.Position{"do", "0"}, node.KindRaise, "boom", nil, nil, nil)
	cfg := &tasks.RaiseConfig{
		Error: werrors.Error{Status: 500, Title: "original"},
		With:  werrors.Filter{Status: 404, Title: "overridden"},
	}
	rt := tasks.NewRaiseRuntime(self, cfg)

	outcome, err := rt.Start(context.Background(), json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, 404, outcome.Err.Status)
	assert.Equal(t, "overridden", outcome.Err.Title)
}
