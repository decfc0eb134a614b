package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
)

// CloudEvent is the minimal CloudEvents-shaped record an Emit task
// produces, per the CloudEvents 1.0 core attributes.
type CloudEvent struct {
	ID          string
	Source      string
	Type        string
	Time        string
	DataContentType string
	Data        json.RawMessage
}

// EmitConfig produces a CloudEvent-shaped record from a configured
// template; the raw output is implementation-defined, here the
// emitted event's id.
type EmitConfig struct {
	Base
	Template any // resolves to the event's `data` (and optionally type/source overrides)
}

// EventSink is the external publish capability 
type EventSink interface {
	Emit(ctx context.Context, event CloudEvent) error
}

// EmitEvaluator resolves the configured template against input.
type EmitEvaluator interface {
	ResolveValue(value any, input json.RawMessage) (json.RawMessage, error)
}

type emitRuntime struct {
	self *node.Node
	cfg  *EmitConfig
	sink EventSink
	eval EmitEvaluator
	idGen func() string
	out  json.RawMessage
}

// NewEmitRuntime constructs the Emit runtime wrapper.
func NewEmitRuntime(self *node.Node, cfg *EmitConfig, sink EventSink, eval EmitEvaluator, idGen func() string) Runtime {
	return &emitRuntime{self: self, cfg: cfg, sink: sink, eval: eval, idGen: idGen}
}

func (r *emitRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	data, err := r.eval.ResolveValue(r.cfg.Template, input)
	if err != nil {
		return Outcome{}, err
	}
	id := r.idGen()
	event := CloudEvent{ID: id, Source: r.self.Position.String(), Type: r.self.Name, Data: data}
	if err := r.sink.Emit(ctx, event); err != nil {
		return Outcome{}, err
	}
	r.out, err = json.Marshal(id)
	if err != nil {
		return Outcome{}, err
	}
	return Done(r.out), nil
}

func (r *emitRuntime) OnChildCompleted(ctx context.Context, _ node.Position, output json.RawMessage) (Outcome, error) {
	return Done(output), nil
}

func (r *emitRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return r.out, nil
}
