package executor

import (
	"encoding/json"
	"time"

	"github.com/lyzr/workflowkernel/internal/werrors"
)

// Status is a workflow instance's lifecycle state.
type Status int

const (
	StatusRunning Status = iota
	StatusSuspended
	StatusCompleted
	StatusFaulted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusSuspended:
		return "SUSPENDED"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFaulted:
		return "FAULTED"
	default:
		return "UNKNOWN"
	}
}

// Result describes why an advancement stopped.
type Result struct {
	Status Status

	// Populated when Status is Suspended.
	SuspendReason string
	ResumeAt      time.Time // zero for event-driven suspensions (Listen, external Call)

	// Populated when Status is Completed or Faulted.
	Output json.RawMessage
	Fault  *werrors.Error
}
