package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/internal/scope"
)

func rootWithInput(input any) *scope.Scope {
	root := scope.NewRoot(nil, nil, nil, nil)
	return root.Child(map[string]any{"input": input})
}

func rootWithVars(vars map[string]any) *scope.Scope {
	root := scope.NewRoot(nil, nil, nil, nil)
	return root.Child(vars)
}

func TestIsExpressionAndIsTemplate(t *testing.T) {
	assert.True(t, scope.IsExpression(`${ .foo }`))
	assert.True(t, scope.IsExpression(`  ${ .foo }  `))
	assert.False(t, scope.IsExpression(`hello ${ .foo }`))
	assert.True(t, scope.IsTemplate(`hello ${ .foo }`))
	assert.False(t, scope.IsTemplate(`hello world`))
	assert.False(t, scope.IsTemplate(`${ .foo }`))
}

func TestEvaluateTypedArithmetic(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithVars(map[string]any{"n": 2.0})

	out, err := e.EvaluateTyped("n * 2", sc)
	require.NoError(t, err)
	assert.Equal(t, 4.0, out)
}

func TestEvaluateTypedDotFieldRewrite(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"score": 90.0})

	out, err := e.EvaluateTyped(".score > 50", sc)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestEvaluateBoolRequiresBooleanResult(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithInput(map[string]any{"score": 90.0})

	_, err := e.EvaluateBool(".score", sc)
	assert.Error(t, err)

	ok, err := e.EvaluateBool(".score > 50", sc)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateUnwrapsExpressionDelimiters(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithVars(map[string]any{"n": 3.0})

	out, err := e.Evaluate("${ n + 1 }", sc)
	require.NoError(t, err)
	assert.Equal(t, 4.0, out)

	_, err = e.Evaluate("n + 1", sc)
	assert.Error(t, err, "Evaluate requires the ${...} wrapper")
}

func TestEvaluateTypedCachesCompiledPrograms(t *testing.T) {
	e := scope.NewEvaluator()
	sc := rootWithVars(map[string]any{"n": 1.0})

	_, err := e.EvaluateTyped("n + 1", sc)
	require.NoError(t, err)
	// Same expression/scope shape a second time should hit the cache path
	// without erroring or changing the result.
	out, err := e.EvaluateTyped("n + 1", sc)
	require.NoError(t, err)
	assert.Equal(t, 2.0, out)

	e.ClearCache()
	out, err = e.EvaluateTyped("n + 1", sc)
	require.NoError(t, err)
	assert.Equal(t, 2.0, out)
}

func TestEvaluateTypedDollarVariableStripping(t *testing.T) {
	e := scope.NewEvaluator()
	root := scope.NewRoot(nil, nil, nil, nil)
	sc := root.Child(map[string]any{"item": 5.0})

	out, err := e.EvaluateTyped("$item + 1", sc)
	require.NoError(t, err)
	assert.Equal(t, 6.0, out)
}
