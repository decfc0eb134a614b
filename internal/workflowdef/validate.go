package workflowdef

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/tasks"
)

// metaValidator checks DocumentMeta's required fields via struct tags,
// the one part of document validation that is genuinely a field-shape
// check rather than a graph property.
var metaValidator = validator.New()

func validateMeta(meta DocumentMeta) error {
	if err := metaValidator.Struct(meta); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	return nil
}

// validateTree checks the compiled tree for the graph-shaped properties
// a struct validator can't express: every `then` directive must name an
// existing sibling (or one of the reserved continue/exit/end values),
// and following `then` chains from any node must not cycle back on
// itself, mirroring the non-existent-target and cycle checks a
// compiler performs over an explicit edge list. Every cycle of named
// jumps is rejected, including one through a Switch whose other cases
// would leave it.
func validateTree(root *node.Node) error {
	if len(root.Children) == 0 {
		return fmt.Errorf("workflow has no tasks (empty do block)")
	}
	return validateNode(root)
}

func validateNode(n *node.Node) error {
	for _, directive := range thenDirectives(n) {
		if (tasks.FlowDirective{Raw: directive}).IsControl() {
			continue
		}
		if _, ok := n.Parent.ChildByName(directive); !ok {
			return fmt.Errorf("task %q: then references unknown sibling %q", n.Position, directive)
		}
	}
	if err := validateNoThenCycles(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := validateNode(c); err != nil {
			return err
		}
	}
	return nil
}

// validateNoThenCycles checks parent's immediate children for a cycle
// among their explicit `then` jumps (A -> B -> A). Control values are
// not edges. A cycle of plain named jumps would loop forever inside a
// single advancement the first time it's taken, since the executor
// follows a named jump without suspending and nothing bounds it the
// way `for` bounds iteration.
func validateNoThenCycles(parent *node.Node) error {
	visited := make(map[string]bool, len(parent.Children))
	recStack := make(map[string]bool, len(parent.Children))

	var walk func(name string) bool
	walk = func(name string) bool {
		visited[name] = true
		recStack[name] = true
		defer func() { recStack[name] = false }()

		child, ok := parent.ChildByName(name)
		if !ok {
			return false
		}
		for _, directive := range thenDirectives(child) {
			if (tasks.FlowDirective{Raw: directive}).IsControl() {
				continue
			}
			if recStack[directive] {
				return true
			}
			if !visited[directive] {
				if walk(directive) {
					return true
				}
			}
		}
		return false
	}

	for _, c := range parent.Children {
		if c.Name == "" || visited[c.Name] {
			continue
		}
		if walk(c.Name) {
			return fmt.Errorf("task %q: then jumps form a cycle with no continue/exit/end", parent.Position)
		}
	}
	return nil
}

// thenDirectives returns every `then` directive a node statically
// declares: its own Base.Then, plus (for Switch) each case's Then.
// The only directive a Runtime chooses at run time is a Switch's
// selected case Then, which is one of the values collected here.
func thenDirectives(n *node.Node) []string {
	var out []string
	if n.IsRoot() {
		return out
	}
	if hb, ok := n.Definition.(tasks.HasBase); ok {
		if then := hb.BaseFields().Then; then != "" {
			out = append(out, then)
		}
	}
	if sw, ok := n.Definition.(*tasks.SwitchConfig); ok {
		for _, c := range sw.Cases {
			if c.Then != "" {
				out = append(out, c.Then)
			}
		}
	}
	return out
}
