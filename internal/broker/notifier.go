package broker

import (
	"context"
	"encoding/json"
)

// CompletionTopic is the topic workflow instance completions/failures
// are published to.
const CompletionTopic = "workflow.completion"

type completionEvent struct {
	InstanceID string          `json:"instance_id"`
	Status     string          `json:"status"`
	Output     json.RawMessage `json:"output,omitempty"`
	Fault      json.RawMessage `json:"fault,omitempty"`
}

// Notifier adapts a Broker into internal/outbox's CompletionNotifier,
// so a Processor can announce terminal instance states without
// depending on internal/broker directly.
type Notifier struct {
	Broker Broker
}

func (n Notifier) NotifyCompleted(ctx context.Context, instanceID string, output json.RawMessage) {
	n.publish(ctx, instanceID, completionEvent{InstanceID: instanceID, Status: "COMPLETED", Output: output})
}

func (n Notifier) NotifyFailed(ctx context.Context, instanceID string, fault json.RawMessage) {
	n.publish(ctx, instanceID, completionEvent{InstanceID: instanceID, Status: "FAILED", Fault: fault})
}

func (n Notifier) publish(ctx context.Context, instanceID string, e completionEvent) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = n.Broker.Publish(ctx, CompletionTopic, instanceID, raw)
}
