package outbox

import (
	"context"
	"time"

	"github.com/lyzr/workflowkernel/common/logger"
)

// Janitor periodically reaps COMPLETED/FAILED outbox entries older
// than retention, in bounded batches so a large backlog never locks
// the table for long. Grounded on the same ticker-driven sweep shape
// used to detect and clean up hanging workflow runs.
type Janitor struct {
	store     Store
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	batchSize int
}

// NewJanitor constructs a Janitor.
func NewJanitor(store Store, log *logger.Logger, interval, retention time.Duration, batchSize int) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Janitor{store: store, log: log, interval: interval, retention: retention, batchSize: batchSize}
}

// Run sweeps on interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.Info("outbox janitor started", "interval", j.interval, "retention", j.retention)
	for {
		select {
		case <-ctx.Done():
			j.log.Info("outbox janitor stopping")
			return
		case <-ticker.C:
			j.sweepOnce(ctx)
		}
	}
}

func (j *Janitor) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-j.retention)
	total := 0
	for {
		n, err := j.store.Delete(ctx, cutoff, j.batchSize)
		if err != nil {
			j.log.Error("janitor sweep failed", "error", err)
			return
		}
		total += n
		if n < j.batchSize {
			break
		}
	}
	if total > 0 {
		j.log.Info("janitor swept aged outbox entries", "count", total, "cutoff", cutoff)
	}
}
