package main

import (
	"context"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

type outboxRelay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
	PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error)
}

type keyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type periodCloser interface {
	CloseApproved(ctx context.Context) (int, error)
}

type poolStats interface {
	LogStats(ctx context.Context)
}

// Worker runs the periodic background jobs.
type Worker struct {
	relay       outboxRelay
	idempotency keyCleaner
	periods     periodCloser // nil when auto-close is off
	pool        poolStats
	cfg         config.WorkerConfig
	log         *logger.Logger
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupInterval := w.cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// poll drains one outbox batch, parks exhausted messages and closes approved
// periods.
func (w *Worker) poll(ctx context.Context) {
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox relay failed", "error", err)
	} else if n > 0 {
		w.log.Debugw("processed outbox batch", "count", n)
	}

	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
	} else if moved > 0 {
		w.log.Warnw("moved outbox messages to DLQ", "count", moved)
	}

	if w.periods == nil {
		return
	}
	closed, err := w.periods.CloseApproved(ctx)
	if err != nil {
		w.log.Errorw("failed to close approved periods", "error", err)
	} else if closed > 0 {
		w.log.Infow("closed approved periods", "count", closed)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if purged, err := w.relay.PurgePublished(ctx, w.cfg.OutboxRetention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}

	if removed, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}

	if w.pool != nil {
		w.pool.LogStats(ctx)
	}
}

// logHandler stands in for the event channel when Redis is disabled.
type logHandler struct {
	log *logger.Logger
}

func (h logHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	h.log.Infow("domain event",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID)
	return nil
}
