package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/internal/scope"
)

func TestResolveLiteralPassesThrough(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"n": 1.0})

	out, err := scope.Resolve(e, "plain string", sc)
	require.NoError(t, err)
	assert.Equal(t, "plain string", out)

	out, err = scope.Resolve(e, 42.0, sc)
	require.NoError(t, err)
	assert.Equal(t, 42.0, out)
}

// A bare dotted field path takes the gjson fast path and never reaches
// the CEL evaluator, but must return the same value CEL would.
func TestResolveSimpleFieldPathUsesGJSONFastPath(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"numbers": []any{1.0, 2.0, 3.0}})

	out, err := scope.Resolve(e, "${ .numbers }", sc)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, out)
}

func TestResolveNestedFieldPath(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"user": map[string]any{"name": "ada"}})

	out, err := scope.Resolve(e, "${ .user.name }", sc)
	require.NoError(t, err)
	assert.Equal(t, "ada", out)
}

// A non-trivial expression (a comparison, not a bare field path) must
// fall through to the full CEL evaluator rather than the gjson path.
func TestResolveFallsBackToCELForNonTrivialExpressions(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"score": 90.0})

	out, err := scope.Resolve(e, "${ .score > 50 }", sc)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

// A field path absent from the input isn't a fast-path hit, so it must
// still fall through to CEL (and fail the same way CEL would for an
// undefined field) rather than silently returning nil.
func TestResolveMissingFieldFallsBackAndErrors(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"score": 90.0})

	_, err := scope.Resolve(e, "${ .missing }", sc)
	assert.Error(t, err)
}

func TestResolveTemplateInterpolation(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"name": "ada"})

	out, err := scope.Resolve(e, "hello ${ .name }!", sc)
	require.NoError(t, err)
	assert.Equal(t, "hello ada!", out)
}

func TestResolveMapAndSliceRecurse(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"n": 2.0})

	out, err := scope.Resolve(e, map[string]any{
		"doubled": "${ .n * 2 }",
		"items":   []any{"${ .n }", "literal"},
	}, sc)
	require.NoError(t, err)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4.0, m["doubled"])
	items, ok := m["items"].([]any)
	require.True(t, ok)
	assert.Equal(t, 2.0, items[0])
	assert.Equal(t, "literal", items[1])
}

func TestResolveToBoolRequiresBoolean(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"score": 90.0})

	ok, err := scope.ResolveToBool(e, "${ .score > 50 }", sc)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = scope.ResolveToBool(e, "${ .score }", sc)
	assert.Error(t, err)

	ok, err = scope.ResolveToBool(e, true, sc)
	require.NoError(t, err)
	assert.True(t, ok)
}
