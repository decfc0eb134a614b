// Package outbox implements the durable scheduling layer on top of
// internal/executor: every workflow instance's current continuation
// message lives as one row, claimed and advanced by a pool of
// Processor workers, with a Janitor reaping rows that have finished
// and aged past their retention window.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/lyzr/workflowkernel/internal/message"
)

// Status is an outbox entry's scheduling state, distinct from the
// executor's own Result.Status: an entry can be DUE long before a
// worker picks it up, or DELAYED while a Try retry timer runs down.
type Status string

const (
	StatusDue       Status = "DUE"
	StatusDelayed   Status = "DELAYED"
	StatusRunning   Status = "RUNNING"
	StatusSuspended Status = "SUSPENDED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Entry is one durable row: a workflow instance's identity plus its
// last persisted continuation message and scheduling metadata.
type Entry struct {
	InstanceID      string
	WorkflowName    string
	WorkflowVersion string
	Status          Status
	Message         *message.Message
	Attempts        int
	NextAttemptAt   time.Time
	LastError       json.RawMessage
	Output          json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Due reports whether the entry is eligible to be claimed right now.
func (e *Entry) Due(now time.Time) bool {
	switch e.Status {
	case StatusDue:
		return true
	case StatusDelayed:
		return !e.NextAttemptAt.After(now)
	default:
		return false
	}
}
