package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lyzr/workflowkernel/common/logger"
	"github.com/lyzr/workflowkernel/internal/executor"
	"github.com/lyzr/workflowkernel/internal/workflowdef"
)

// DefinitionLoader resolves a compiled workflow by name/version. The
// compiler caches by (name, version), so repeated lookups for the
// same definition are cheap.
type DefinitionLoader interface {
	Load(ctx context.Context, name, version string) (*workflowdef.Compiled, error)
}

// InstanceContextLoader resolves the root-scope values for an
// already-started instance: its workflow descriptor, runtime descriptor,
// and secrets.
type InstanceContextLoader interface {
	Load(ctx context.Context, instanceID string) (executor.InstanceContext, error)
}

// CompletionNotifier is told when an instance reaches a terminal
// state, so a broker can fan that out to listeners. Optional.
type CompletionNotifier interface {
	NotifyCompleted(ctx context.Context, instanceID string, output json.RawMessage)
	NotifyFailed(ctx context.Context, instanceID string, fault json.RawMessage)
}

// Processor repeatedly claims DUE/DELAYED outbox entries and advances
// each one by exactly one executor step, persisting the result.
// Grounded on the claim-then-drain shape of a ticker-driven worker
// pool: one ticker decides when to poll, a bounded goroutine pool
// decides how many entries advance concurrently.
type Processor struct {
	store     Store
	engine    *executor.Engine
	defs      DefinitionLoader
	instances InstanceContextLoader
	notifier  CompletionNotifier
	log       *logger.Logger

	batchSize    int
	pollInterval time.Duration
	concurrency  int
}

// NewProcessor constructs a Processor. notifier may be nil.
func NewProcessor(store Store, engine *executor.Engine, defs DefinitionLoader, instances InstanceContextLoader, notifier CompletionNotifier, log *logger.Logger, batchSize int, pollInterval time.Duration, concurrency int) *Processor {
	if batchSize <= 0 {
		batchSize = 100
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Processor{
		store: store, engine: engine, defs: defs, instances: instances, notifier: notifier, log: log,
		batchSize: batchSize, pollInterval: pollInterval, concurrency: concurrency,
	}
}

// Run polls on pollInterval until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.log.Info("outbox processor started", "poll_interval", p.pollInterval, "batch_size", p.batchSize)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("outbox processor stopping")
			return
		case <-ticker.C:
			if err := p.drainOnce(ctx); err != nil {
				p.log.Error("outbox processor tick failed", "error", err)
			}
		}
	}
}

func (p *Processor) drainOnce(ctx context.Context) error {
	entries, err := p.store.Claim(ctx, time.Now(), p.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, e := range entries {
		e := e
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			p.advanceOne(ctx, e)
		}()
	}
	wg.Wait()
	return nil
}

func (p *Processor) advanceOne(ctx context.Context, e *Entry) {
	log := p.log.WithInstance(e.WorkflowName, e.WorkflowVersion, e.InstanceID)

	compiled, err := p.defs.Load(ctx, e.WorkflowName, e.WorkflowVersion)
	if err != nil {
		log.Error("load compiled workflow failed", "error", err)
		p.markFailed(ctx, e, err)
		return
	}
	ic, err := p.instances.Load(ctx, e.InstanceID)
	if err != nil {
		log.Error("load instance context failed", "error", err)
		p.markFailed(ctx, e, err)
		return
	}

	msgOut, result, err := p.engine.Advance(ctx, compiled, ic, e.Message)
	if err != nil {
		log.Error("advance failed", "error", err)
		p.markFailed(ctx, e, err)
		return
	}

	switch result.Status {
	case executor.StatusSuspended:
		e.Message = msgOut
		if result.ResumeAt.IsZero() {
			e.Status = StatusSuspended
		} else {
			e.Status = StatusDelayed
			e.NextAttemptAt = result.ResumeAt
			e.Attempts++
		}
		if err := p.store.Update(ctx, e); err != nil {
			log.Error("persist suspended entry failed", "error", err)
		}

	case executor.StatusCompleted:
		e.Message = msgOut
		e.Status = StatusCompleted
		e.Output = result.Output
		if err := p.store.Update(ctx, e); err != nil {
			log.Error("persist completed entry failed", "error", err)
		}
		if p.notifier != nil {
			p.notifier.NotifyCompleted(ctx, e.InstanceID, result.Output)
		}

	case executor.StatusFaulted:
		faultRaw, _ := json.Marshal(result.Fault)
		e.Status = StatusFailed
		e.LastError = faultRaw
		if err := p.store.Update(ctx, e); err != nil {
			log.Error("persist faulted entry failed", "error", err)
		}
		if p.notifier != nil {
			p.notifier.NotifyFailed(ctx, e.InstanceID, faultRaw)
		}

	default:
		log.Error("advance returned unexpected status", "status", result.Status.String())
		p.markFailed(ctx, e, nil)
	}
}

func (p *Processor) markFailed(ctx context.Context, e *Entry, cause error) {
	if cause != nil {
		e.LastError, _ = json.Marshal(map[string]string{"error": cause.Error()})
	}
	e.Status = StatusFailed
	if err := p.store.Update(ctx, e); err != nil {
		p.log.Error("mark failed entry failed", "instance_id", e.InstanceID, "error", err)
	}
}
