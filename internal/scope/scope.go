// Package scope implements the hierarchical evaluation context and the
// expression/template evaluator tasks and the executor use to resolve
// input/output transforms, conditions, and exports.
package scope

import "encoding/json"

// Scope is a JSON object assembled bottom-up: the current node's
// variables plus a task descriptor, merged with its parent. The root
// scope additionally carries workflow/context/runtime/secrets.
type Scope struct {
	parent *Scope
	values map[string]any
}

// NewRoot builds the root scope for a workflow instance.
func NewRoot(workflow, context, runtime, secrets any) *Scope {
	return &Scope{values: map[string]any{
		"workflow": workflow,
		"context":  context,
		"runtime":  runtime,
		"secrets":  secrets,
	}}
}

// Child derives a narrower scope by merging the given variables (e.g.
// a task descriptor, or a For loop's item/index) over the parent.
// Keys in vars shadow identically-named keys from the parent.
func (s *Scope) Child(vars map[string]any) *Scope {
	return &Scope{parent: s, values: vars}
}

// WithTaskDescriptor derives a child scope carrying the standard task
// descriptor fields (name, reference, definition, input, output,
// startedAt) every runtime step exposes to expressions.
func (s *Scope) WithTaskDescriptor(name, reference string, definition, input, output any, startedAt string) *Scope {
	return s.Child(map[string]any{
		"name":       name,
		"reference":  reference,
		"definition": definition,
		"input":      input,
		"output":     output,
		"startedAt":  startedAt,
	})
}

// Get resolves a key by walking from this scope outward to the root,
// returning the first (narrowest) match.
func (s *Scope) Get(key string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Flatten merges every ancestor scope into a single map, narrowest
// values winning, for use as the CEL/template evaluation environment.
func (s *Scope) Flatten() map[string]any {
	// Walk root to narrowest so narrower values overwrite broader ones.
	chain := make([]*Scope, 0, 4)
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	out := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].values {
			out[k] = v
		}
	}
	return out
}

// Context returns the root scope's exported global context, with
// secrets stripped — secrets must never be observable in an exported
// context or an emitted Message.
func (s *Scope) Context() any {
	v, _ := s.Get("context")
	return v
}

// ExportableSnapshot returns the flattened scope with the secrets key
// removed, safe to serialize or log.
func (s *Scope) ExportableSnapshot() map[string]any {
	flat := s.Flatten()
	delete(flat, "secrets")
	return flat
}

// MarshalJSONValue is a convenience used by callers building template
// inputs that need the scope as a plain JSON value.
func (s *Scope) MarshalJSONValue() (json.RawMessage, error) {
	return json.Marshal(s.ExportableSnapshot())
}
