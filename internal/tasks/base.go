package tasks

import "time"

// InputSpec is the task's `input` clause.
type InputSpec struct {
	Schema any // JSON Schema document, validated externally (out of scope)
	From   any // expression/literal/template value
}

// OutputSpec is the task's `output` clause.
type OutputSpec struct {
	Schema any
	As     any
}

// ExportSpec is the task's `export` clause.
type ExportSpec struct {
	Schema any
	As     any
}

// Base carries the fields every task kind shares, 
type Base struct {
	Name    string
	If      any // expression/literal boolean, evaluated on transformed input
	Input   InputSpec
	Output  OutputSpec
	Export  ExportSpec
	Then    string // sibling name, or continue/exit/end; empty means default next sibling
	Timeout time.Duration
}

// BaseFields returns b itself, satisfying HasBase via promotion on any
// Config type that embeds Base.
func (b *Base) BaseFields() *Base { return b }

// HasBase is implemented (via embedding) by every kind-specific Config.
type HasBase interface {
	BaseFields() *Base
}

// ResolveDirective returns the effective flow directive for a
// completed node: a Runtime that dynamically decides its directive
// (Switch) takes precedence over the node's statically configured
// `then` field.
func ResolveDirective(def any, runtime Runtime) string {
	if d, ok := runtime.(Directing); ok {
		return d.Directive()
	}
	if hb, ok := def.(HasBase); ok {
		return hb.BaseFields().Then
	}
	return ""
}
