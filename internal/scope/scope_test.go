package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/internal/scope"
)

func TestScopeGetWalksNarrowestFirst(t *testing.T) {
	root := scope.NewRoot("wf", map[string]any{"k": "root"}, "rt", "sekret")
	child := root.Child(map[string]any{"input": "child-input"})
	grandchild := child.Child(map[string]any{"input": "grandchild-input"})

	v, ok := grandchild.Get("input")
	require.True(t, ok)
	assert.Equal(t, "grandchild-input", v)

	v, ok = grandchild.Get("workflow")
	require.True(t, ok)
	assert.Equal(t, "wf", v)

	_, ok = grandchild.Get("nonexistent")
	assert.False(t, ok)
}

func TestScopeFlattenNarrowerWins(t *testing.T) {
	root := scope.NewRoot("wf", nil, nil, nil)
	child := root.Child(map[string]any{"workflow": "shadowed", "name": "task-a"})

	flat := child.Flatten()
	assert.Equal(t, "shadowed", flat["workflow"])
	assert.Equal(t, "task-a", flat["name"])
}

func TestScopeContextReturnsRootContext(t *testing.T) {
	root := scope.NewRoot("wf", map[string]any{"count": 1.0}, nil, nil)
	child := root.Child(map[string]any{"input": "x"})

	ctx := child.Context()
	m, ok := ctx.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, m["count"])
}

func TestScopeExportableSnapshotStripsSecrets(t *testing.T) {
	root := scope.NewRoot("wf", nil, nil, "topsecret")
	snap := root.ExportableSnapshot()

	_, hasSecrets := snap["secrets"]
	assert.False(t, hasSecrets, "secrets must never appear in an exportable snapshot")
	assert.Equal(t, "wf", snap["workflow"])
}

func TestScopeWithTaskDescriptorBindsStandardFields(t *testing.T) {
	root := scope.NewRoot(nil, nil, nil, nil)
	sc := root.WithTaskDescriptor("first", "/do/0", map[string]any{"set": map[string]any{"a": 1}}, "in", "out", "2026-08-01T00:00:00Z")

	flat := sc.Flatten()
	assert.Equal(t, "first", flat["name"])
	assert.Equal(t, "/do/0", flat["reference"])
	assert.Equal(t, "in", flat["input"])
	assert.Equal(t, "out", flat["output"])
	assert.Equal(t, "2026-08-01T00:00:00Z", flat["startedAt"])
}

func TestScopeMarshalJSONValueExcludesSecrets(t *testing.T) {
	root := scope.NewRoot("wf", nil, nil, "topsecret")

	raw, err := root.MarshalJSONValue()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "topsecret")
	assert.Contains(t, string(raw), `"workflow":"wf"`)
}
