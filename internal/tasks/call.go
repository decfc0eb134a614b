package tasks

import (
	"context"
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

// CallKind names the concrete collaborator a Call task delegates to.
// The collaborators themselves (HTTP/gRPC/OpenAPI/AsyncAPI/function
// implementations) are external, out of scope this
// engine only defines the Caller capability they must satisfy.
type CallKind string

const (
	CallHTTP     CallKind = "http"
	CallGRPC     CallKind = "grpc"
	CallOpenAPI  CallKind = "openapi"
	CallAsyncAPI CallKind = "asyncapi"
	CallFunction CallKind = "function"
)

// CallConfig delegates to an external collaborator using only the
// transformed input; on failure it raises a `communication` Error
// with status and instance pointer.
type CallConfig struct {
	Base
	Kind CallKind
	With any // call arguments, an expression/literal/template value
}

// Caller is the external collaborator capability 
type Caller interface {
	Invoke(ctx context.Context, kind CallKind, with any, input json.RawMessage) (json.RawMessage, *werrors.Error)
}

type callRuntime struct {
	self   *node.Node
	cfg    *CallConfig
	caller Caller
	out    json.RawMessage
}

// NewCallRuntime constructs the Call runtime wrapper.
func NewCallRuntime(self *node.Node, cfg *CallConfig, caller Caller) Runtime {
	return &callRuntime{self: self, cfg: cfg, caller: caller}
}

func (r *callRuntime) Start(ctx context.Context, input json.RawMessage) (Outcome, error) {
	out, callErr := r.caller.Invoke(ctx, r.cfg.Kind, r.cfg.With, input)
	if callErr != nil {
		return Raise(callErr.WithInstance(r.self.Position.String())), nil
	}
	r.out = out
	return Done(out), nil
}

func (r *callRuntime) OnChildCompleted(ctx context.Context, _ node.Position, output json.RawMessage) (Outcome, error) {
	return Done(output), nil
}

func (r *callRuntime) Complete(ctx context.Context) (json.RawMessage, error) {
	return r.out, nil
}
