package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyzr/workflowkernel/common/logger"
	"github.com/lyzr/workflowkernel/internal/message"
)

// Store is the durable persistence contract a Processor/Janitor pair
// drives. A single Postgres-backed implementation is provided;
// callers needing a different backend only need to satisfy this.
type Store interface {
	// Insert creates a new entry, DUE immediately.
	Insert(ctx context.Context, e *Entry) error
	// Claim locks up to limit DUE/DELAYED-and-ready rows and marks
	// them RUNNING, returning the claimed entries. Rows locked by a
	// concurrent claimant are skipped rather than waited on.
	Claim(ctx context.Context, now time.Time, limit int) ([]*Entry, error)
	// Update persists the outcome of one advancement against an
	// entry previously returned by Claim.
	Update(ctx context.Context, e *Entry) error
	// Delete removes entries in a terminal status older than cutoff,
	// in batches of at most limit, returning the number removed.
	Delete(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// PostgresStore implements Store against a `workflow_outbox` table
// using SELECT ... FOR UPDATE SKIP LOCKED to let multiple Processor
// instances share one table without double-claiming a row.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresStore wraps an already-connected pool.
func NewPostgresStore(pool *pgxpool.Pool, log *logger.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, log: log}
}

func (s *PostgresStore) Insert(ctx context.Context, e *Entry) error {
	msgRaw, err := message.NewCodec().Marshal(e.Message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO workflow_outbox
			(instance_id, workflow_name, workflow_version, status, message, attempts, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, now(), now())
		ON CONFLICT (instance_id) DO UPDATE SET
			status = EXCLUDED.status,
			message = EXCLUDED.message,
			next_attempt_at = EXCLUDED.next_attempt_at,
			updated_at = now()
	`, e.InstanceID, e.WorkflowName, e.WorkflowVersion, StatusDue, msgRaw, e.NextAttemptAt)
	if err != nil {
		return fmt.Errorf("insert outbox entry %s: %w", e.InstanceID, err)
	}
	return nil
}

func (s *PostgresStore) Claim(ctx context.Context, now time.Time, limit int) ([]*Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT instance_id, workflow_name, workflow_version, message, attempts
		FROM workflow_outbox
		WHERE status IN ('DUE', 'DELAYED') AND next_attempt_at <= $1
		ORDER BY next_attempt_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query claimable entries: %w", err)
	}

	var entries []*Entry
	var ids []string
	for rows.Next() {
		var e Entry
		var msgRaw []byte
		if err := rows.Scan(&e.InstanceID, &e.WorkflowName, &e.WorkflowVersion, &msgRaw, &e.Attempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan claimable entry: %w", err)
		}
		msg, err := message.NewCodec().Unmarshal(msgRaw)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("unmarshal entry %s message: %w", e.InstanceID, err)
		}
		e.Message = msg
		e.Status = StatusRunning
		entries = append(entries, &e)
		ids = append(ids, e.InstanceID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE workflow_outbox SET status = $1, updated_at = now() WHERE instance_id = ANY($2)
	`, StatusRunning, ids); err != nil {
		return nil, fmt.Errorf("mark claimed running: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Update(ctx context.Context, e *Entry) error {
	var msgRaw []byte
	if e.Message != nil {
		raw, err := message.NewCodec().Marshal(e.Message)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		msgRaw = raw
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE workflow_outbox SET
			status = $1, message = $2, attempts = $3, next_attempt_at = $4,
			last_error = $5, output = $6, updated_at = now()
		WHERE instance_id = $7
	`, e.Status, msgRaw, e.Attempts, e.NextAttemptAt, nullableRaw(e.LastError), nullableRaw(e.Output), e.InstanceID)
	if err != nil {
		return fmt.Errorf("update outbox entry %s: %w", e.InstanceID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	batch := &pgx.Batch{}
	batch.Queue(`
		DELETE FROM workflow_outbox
		WHERE instance_id IN (
			SELECT instance_id FROM workflow_outbox
			WHERE status IN ('COMPLETED', 'FAILED') AND updated_at < $1
			LIMIT $2
		)
	`, cutoff, limit)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	tag, err := br.Exec()
	if err != nil {
		return 0, fmt.Errorf("delete aged outbox entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func nullableRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
