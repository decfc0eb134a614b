package executor

import (
	"encoding/json"

	"github.com/lyzr/workflowkernel/internal/tasks"
)

// Environment bundles the external collaborators a workflow's tasks
// may call out to: call execution, event emission, and id
// generation. Concrete implementations live outside this package —
// the engine only depends on these narrow interfaces.
type Environment struct {
	Caller    tasks.Caller
	EventSink tasks.EventSink
	NewID     func() string
	Validator SchemaValidator
}

func (e Environment) validator() SchemaValidator {
	if e.Validator != nil {
		return e.Validator
	}
	return noopValidator{}
}

// SchemaValidator validates a JSON value against a JSON Schema
// document. JSON Schema is out of scope for this engine; by
// default no validation is performed. A real implementation can be
// plugged in through Environment.
type SchemaValidator interface {
	Validate(schema any, value json.RawMessage) error
}

type noopValidator struct{}

func (noopValidator) Validate(schema any, value json.RawMessage) error { return nil }
