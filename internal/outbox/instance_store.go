package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyzr/workflowkernel/internal/executor"
)

// InstanceStore persists the root-scope values ($workflow, $runtime,
// $secrets) a workflow instance exposes for the lifetime of its
// execution, separately from its mutable outbox Entry: these values
// are set once at start and never change, so there is no reason to
// carry them through every Claim/Update round trip.
type InstanceStore struct {
	pool *pgxpool.Pool
}

// NewInstanceStore wraps an already-connected pool.
func NewInstanceStore(pool *pgxpool.Pool) *InstanceStore {
	return &InstanceStore{pool: pool}
}

// Create records a new instance's root-scope values.
func (s *InstanceStore) Create(ctx context.Context, ic executor.InstanceContext) error {
	workflowRaw, err := json.Marshal(ic.Workflow)
	if err != nil {
		return fmt.Errorf("marshal workflow context: %w", err)
	}
	runtimeRaw, err := json.Marshal(ic.Runtime)
	if err != nil {
		return fmt.Errorf("marshal runtime context: %w", err)
	}
	secretsRaw, err := json.Marshal(ic.Secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets context: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO workflow_instance (instance_id, workflow, runtime, secrets, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (instance_id) DO NOTHING
	`, ic.ID, workflowRaw, runtimeRaw, secretsRaw)
	if err != nil {
		return fmt.Errorf("create instance %s: %w", ic.ID, err)
	}
	return nil
}

// Load satisfies internal/outbox's InstanceContextLoader.
func (s *InstanceStore) Load(ctx context.Context, instanceID string) (executor.InstanceContext, error) {
	var workflowRaw, runtimeRaw, secretsRaw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT workflow, runtime, secrets FROM workflow_instance WHERE instance_id = $1
	`, instanceID).Scan(&workflowRaw, &runtimeRaw, &secretsRaw)
	if err != nil {
		return executor.InstanceContext{}, fmt.Errorf("load instance %s: %w", instanceID, err)
	}

	ic := executor.InstanceContext{ID: instanceID}
	if err := json.Unmarshal(workflowRaw, &ic.Workflow); err != nil {
		return executor.InstanceContext{}, fmt.Errorf("unmarshal workflow context: %w", err)
	}
	if err := json.Unmarshal(runtimeRaw, &ic.Runtime); err != nil {
		return executor.InstanceContext{}, fmt.Errorf("unmarshal runtime context: %w", err)
	}
	if err := json.Unmarshal(secretsRaw, &ic.Secrets); err != nil {
		return executor.InstanceContext{}, fmt.Errorf("unmarshal secrets context: %w", err)
	}
	return ic, nil
}
