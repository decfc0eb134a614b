package outbox_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflowkernel/common/logger"
	"github.com/lyzr/workflowkernel/internal/executor"
	"github.com/lyzr/workflowkernel/internal/message"
	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/nodestate"
	"github.com/lyzr/workflowkernel/internal/outbox"
	"github.com/lyzr/workflowkernel/internal/scope"
	"github.com/lyzr/workflowkernel/internal/workflowdef"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New("error", "text")
}

const setPipelineDoc = `
document:
  dsl: "1.0.0"
  namespace: test
  name: set-pipeline
  version: "1.0.0"
do:
  - setGreeting:
      set:
        message: hello
`

// fakeStore is an in-memory Store good enough to exercise Processor's
// claim/advance/persist cycle without a live Postgres instance.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*outbox.Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*outbox.Entry)}
}

func (s *fakeStore) Insert(ctx context.Context, e *outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Status = outbox.StatusDue
	s.entries[e.InstanceID] = e
	return nil
}

func (s *fakeStore) Claim(ctx context.Context, now time.Time, limit int) ([]*outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []*outbox.Entry
	for _, e := range s.entries {
		if len(claimed) >= limit {
			break
		}
		if e.Due(now) {
			e.Status = outbox.StatusRunning
			claimed = append(claimed, e)
		}
	}
	return claimed, nil
}

func (s *fakeStore) Update(ctx context.Context, e *outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.InstanceID] = e
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	return 0, nil
}

func (s *fakeStore) get(id string) *outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id]
}

type fakeDefs struct {
	compiled *workflowdef.Compiled
}

func (d fakeDefs) Load(ctx context.Context, name, version string) (*workflowdef.Compiled, error) {
	return d.compiled, nil
}

type fakeInstances struct{}

func (fakeInstances) Load(ctx context.Context, instanceID string) (executor.InstanceContext, error) {
	return executor.InstanceContext{ID: instanceID}, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
}

func (n *recordingNotifier) NotifyCompleted(ctx context.Context, instanceID string, output json.RawMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, instanceID)
}

func (n *recordingNotifier) NotifyFailed(ctx context.Context, instanceID string, fault json.RawMessage) {}

func TestProcessorDrivesInstanceToCompletion(t *testing.T) {
	compiled, err := workflowdef.ParseAndCompile([]byte(setPipelineDoc))
	require.NoError(t, err)

	eval := scope.NewEvaluator()
	engine := executor.New(eval, executor.Environment{}, nil)

	states := map[string]*nodestate.State{
		node.Root.String(): {RawInput: json.RawMessage("null")},
	}
	msg, err := message.NewCodec().Encode(compiled.Name, compiled.Version, states, node.Root)
	require.NoError(t, err)

	store := newFakeStore()
	require.NoError(t, store.Insert(context.Background(), &outbox.Entry{
		InstanceID:      "instance-1",
		WorkflowName:    compiled.Name,
		WorkflowVersion: compiled.Version,
		Message:         msg,
	}))

	notifier := &recordingNotifier{}
	proc := outbox.NewProcessor(store, engine, fakeDefs{compiled: compiled}, fakeInstances{}, notifier, testLogger(t), 10, time.Millisecond, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go proc.Run(ctx)

	require.Eventually(t, func() bool {
		e := store.get("instance-1")
		return e != nil && e.Status == outbox.StatusCompleted
	}, 150*time.Millisecond, 5*time.Millisecond)

	entry := store.get("instance-1")
	assert.Equal(t, outbox.StatusCompleted, entry.Status)
	assert.JSONEq(t, `{"message":"hello"}`, string(entry.Output))
	assert.Contains(t, notifier.completed, "instance-1")
}

func TestEntryDue(t *testing.T) {
	now := time.Now()
	due := &outbox.Entry{Status: outbox.StatusDue}
	assert.True(t, due.Due(now))

	delayedFuture := &outbox.Entry{Status: outbox.StatusDelayed, NextAttemptAt: now.Add(time.Hour)}
	assert.False(t, delayedFuture.Due(now))

	delayedPast := &outbox.Entry{Status: outbox.StatusDelayed, NextAttemptAt: now.Add(-time.Hour)}
	assert.True(t, delayedPast.Due(now))

	suspended := &outbox.Entry{Status: outbox.StatusSuspended}
	assert.False(t, suspended.Due(now))
}
