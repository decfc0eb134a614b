package workflowdef_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/internal/workflowdef"
)

func TestParseAndCompileHappyPath(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: greet
  version: "1.0.0"
do:
  - sayHi:
      set:
        greeting: hello
`
	compiled, err := workflowdef.ParseAndCompile([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "greet", compiled.Name)
	assert.Equal(t, "1.0.0", compiled.Version)
	require.NotNil(t, compiled.Tree)
}

func TestParseAndCompileRejectsMissingRequiredMetaFields(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  version: "1.0.0"
do:
  - sayHi:
      set:
        greeting: hello
`
	_, err := workflowdef.ParseAndCompile([]byte(doc))
	assert.Error(t, err, "a document missing the required name field must be rejected")
}

func TestParseAndCompileRejectsEmptyDocument(t *testing.T) {
	_, err := workflowdef.ParseAndCompile([]byte(``))
	assert.Error(t, err)
}

func TestParseAndCompileRejectsEmptyDoBlock(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: empty
  version: "1.0.0"
do: []
`
	_, err := workflowdef.ParseAndCompile([]byte(doc))
	assert.Error(t, err, "a workflow with no tasks must be rejected at compile time")
}

func TestParseAndCompileRejectsThenReferencingUnknownSibling(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: bad-then
  version: "1.0.0"
do:
  - first:
      set:
        a: 1
      then: nonexistent
`
	_, err := workflowdef.ParseAndCompile([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sibling")
}

func TestParseAndCompileAcceptsThenReferencingControlValues(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: control-then
  version: "1.0.0"
do:
  - first:
      set:
        a: 1
      then: end
  - second:
      set:
        b: 2
`
	_, err := workflowdef.ParseAndCompile([]byte(doc))
	require.NoError(t, err)
}

func TestParseAndCompileAcceptsThenReferencingExistingSibling(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: good-then
  version: "1.0.0"
do:
  - first:
      set:
        a: 1
      then: third
  - second:
      set:
        b: 2
  - third:
      set:
        c: 3
`
	_, err := workflowdef.ParseAndCompile([]byte(doc))
	require.NoError(t, err)
}

// Two sibling tasks whose `then` directives point at each other with no
// reachable continue/exit/end would loop forever inside one advancement
// the first time the cycle is taken, so compilation must reject it.
func TestParseAndCompileRejectsThenCycle(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: then-cycle
  version: "1.0.0"
do:
  - first:
      set:
        a: 1
      then: second
  - second:
      set:
        b: 2
      then: first
`
	_, err := workflowdef.ParseAndCompile([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

// A Switch case's `then` is validated the same way a Base.Then is.
func TestParseAndCompileRejectsSwitchCaseThenReferencingUnknownSibling(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: bad-switch-then
  version: "1.0.0"
do:
  - route:
      switch:
        - isHigh:
            when: '${ .score > 50 }'
            then: nowhere
  - low:
      set:
        bucket: low
`
	_, err := workflowdef.ParseAndCompile([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sibling")
}

// A self-referencing `then` with no other sibling is always a cycle
// regardless of runtime conditions, since nothing bounds it.
func TestParseAndCompileRejectsSelfReferencingThen(t *testing.T) {
	doc := `
document:
  dsl: "1.0.0"
  namespace: test
  name: self-then
  version: "1.0.0"
do:
  - loopy:
      set:
        a: 1
      then: loopy
`
	_, err := workflowdef.ParseAndCompile([]byte(doc))
	assert.Error(t, err)
}
