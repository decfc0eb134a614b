package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
)

// SwitchCase pairs a named case with its condition and flow directive.
type SwitchCase struct {
	Name string
	When any // expression/literal boolean; absent means always-true
	Then string
}

// SwitchConfig evaluates cases in declaration order; the first whose
// When is truthy selects its Then directive. No case matching behaves
// as `continue`.
type SwitchConfig struct {
	Base
	Cases []SwitchCase
}

// SwitchEvaluator is the narrow dependency switchRuntime needs from the
// scope/expression layer, injected to avoid tasks depending on scope.
type SwitchEvaluator interface {
	ResolveBool(value any, input json.RawMessage) (bool, error)
}

// Directing is implemented by Runtimes (here, only Switch) whose
// completion does not simply fall through to the next
// sibling — the executor consults Directive() to resolve the flow
// directive instead of the default next-sibling rule.
type Directing interface {
	Directive() string
}

type switchRuntime struct {
	self     *node.Node
	cfg      *SwitchConfig
	eval     SwitchEvaluator
	input    json.RawMessage
	selected string
}

// NewSwitchRuntime constructs the Switch runtime wrapper.
func NewSwitchRuntime(self *node.Node, cfg *SwitchConfig, eval SwitchEvaluator) Runtime {
	return &switchRuntime{self: self, cfg: cfg, eval: eval}
}

func (r *switchRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	r.input = input
	r.selected = ThenContinue
	for _, c := range r.cfg.Cases {
		match := c.When == nil
		if !match {
			ok, err := r.eval.ResolveBool(c.When, input)
			if err != nil {
				return Outcome{}, err
			}
			match = ok
		}
		if match {
			r.selected = c.Then
			break
		}
	}
	return Done(input), nil
}

func (r *switchRuntime) OnChildCompleted(ctx context.Context, _ node.Position, output json.RawMessage) (Outcome, error) {
	return Done(output), nil
}

func (r *switchRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return r.input, nil
}

// Directive returns the selected case's flow directive (a sibling
// name, continue/exit/end), consulted by the executor in place of the
// default next-sibling rule.
func (r *switchRuntime) Directive() string {
	return r.selected
}
