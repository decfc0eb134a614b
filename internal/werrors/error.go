// Package werrors implements the structured Error taxonomy and the
// Try/Catch retry policy (backoff + jitter).
package werrors

import "fmt"

// Type is one of the closed set of standard error type URIs.
type Type string

const (
	TypeConfiguration  Type = "https://workflowkernel.dev/errors/configuration"
	TypeValidation     Type = "https://workflowkernel.dev/errors/validation"
	TypeExpression     Type = "https://workflowkernel.dev/errors/expression"
	TypeCommunication  Type = "https://workflowkernel.dev/errors/communication"
	TypeAuthentication Type = "https://workflowkernel.dev/errors/authentication"
	TypeAuthorization  Type = "https://workflowkernel.dev/errors/authorization"
	TypeTimeout        Type = "https://workflowkernel.dev/errors/timeout"
	TypeRuntime        Type = "https://workflowkernel.dev/errors/runtime"
)

// Error is the structured value raised by a node and propagated up the
// parent chain until a Try catches it or the workflow faults.
type Error struct {
	Type     Type   `json:"type"`
	Status   int    `json:"status"`
	Title    string `json:"title,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance"` // position pointer of the raising node
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s: %s (%s) at %s", e.Status, e.Title, e.Detail, e.Type, e.Instance)
}

func newError(t Type, status int, title string, detail error, instance string) *Error {
	e := &Error{Type: t, Status: status, Title: title, Instance: instance}
	if detail != nil {
		e.Detail = detail.Error()
	}
	return e
}

func NewConfiguration(detail error, instance string) *Error {
	return newError(TypeConfiguration, 400, "Configuration Error", detail, instance)
}

func NewValidation(detail error, instance string) *Error {
	return newError(TypeValidation, 400, "Validation Error", detail, instance)
}

func NewExpression(detail error, instance string) *Error {
	return newError(TypeExpression, 400, "Expression Error", detail, instance)
}

func NewCommunication(status int, detail error, instance string) *Error {
	if status == 0 {
		status = 502
	}
	return newError(TypeCommunication, status, "Communication Error", detail, instance)
}

func NewAuthentication(detail error, instance string) *Error {
	return newError(TypeAuthentication, 401, "Authentication Error", detail, instance)
}

func NewAuthorization(detail error, instance string) *Error {
	return newError(TypeAuthorization, 403, "Authorization Error", detail, instance)
}

func NewTimeout(detail error, instance string) *Error {
	return newError(TypeTimeout, 408, "Timeout Error", detail, instance)
}

func NewRuntime(detail error, instance string) *Error {
	return newError(TypeRuntime, 500, "Runtime Error", detail, instance)
}

// WithInstance returns a copy of e with Instance set, if not already set.
func (e *Error) WithInstance(instance string) *Error {
	if e == nil {
		return nil
	}
	if e.Instance != "" {
		return e
	}
	clone := *e
	clone.Instance = instance
	return &clone
}

// Filter is the `errors.with` matcher from a Try's catch clause. All
// specified fields must structurally match; omitted (zero) fields
// match anything.
type Filter struct {
	Type     Type   `json:"type,omitempty"`
	Status   int    `json:"status,omitempty"`
	Instance string `json:"instance,omitempty"`
	Title    string `json:"title,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Matches reports whether e satisfies every non-zero field of f.
func (f Filter) Matches(e *Error) bool {
	if e == nil {
		return false
	}
	if f.Type != "" && f.Type != e.Type {
		return false
	}
	if f.Status != 0 && f.Status != e.Status {
		return false
	}
	if f.Instance != "" && f.Instance != e.Instance {
		return false
	}
	if f.Title != "" && f.Title != e.Title {
		return false
	}
	if f.Detail != "" && f.Detail != e.Detail {
		return false
	}
	return true
}
