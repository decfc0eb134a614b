package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/lyzr/workflowkernel/common/config"
	"github.com/lyzr/workflowkernel/common/logger"
	"github.com/lyzr/workflowkernel/internal/executor"
	"github.com/lyzr/workflowkernel/internal/message"
	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/nodestate"
	"github.com/lyzr/workflowkernel/internal/outbox"
)

func runInstance(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	if len(args) < 1 || args[0] != "start" {
		return fmt.Errorf("usage: instance start <name> <version> [input-file]")
	}
	args = args[1:]
	if len(args) < 2 {
		return fmt.Errorf("usage: instance start <name> <version> [input-file]")
	}
	name, version := args[0], args[1]

	var input json.RawMessage = json.RawMessage("null")
	if len(args) == 3 {
		raw, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[2], err)
		}
		input = raw
	}

	pool, err := connectPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := newRegistry(pool.Pool, log)
	compiled, err := reg.Load(ctx, name, version)
	if err != nil {
		return err
	}

	instanceID := uuid.NewString()
	ic := executor.InstanceContext{
		ID:      instanceID,
		Workflow: map[string]any{"name": name, "version": version},
		Runtime: map[string]any{"engine": "workflowkernel"},
		Secrets: map[string]any{},
	}

	instances := outbox.NewInstanceStore(pool.Pool)
	if err := instances.Create(ctx, ic); err != nil {
		return err
	}

	states := map[string]*nodestate.State{
		node.Root.String(): {RawInput: input},
	}
	msg, err := message.NewCodec().Encode(compiled.Name, compiled.Version, states, node.Root)
	if err != nil {
		return fmt.Errorf("encode initial message: %w", err)
	}

	store := outbox.NewPostgresStore(pool.Pool, log)
	if err := store.Insert(ctx, &outbox.Entry{
		InstanceID:      instanceID,
		WorkflowName:    compiled.Name,
		WorkflowVersion: compiled.Version,
		Message:         msg,
	}); err != nil {
		return err
	}

	fmt.Printf("started instance %s for %s@%s\n", instanceID, compiled.Name, compiled.Version)
	return nil
}
