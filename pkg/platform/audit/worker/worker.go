package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditpg "givebridge/pkg/platform/audit/store/postgres"
)

// OutboxSource is the slice of the outbox store the worker needs.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]auditpg.OutboxRecord, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Worker drains the audit outbox into Kafka. Rows stay pending until the
// broker acknowledges them, so a crash between fetch and publish only means
// a retried delivery, never a lost one.
type Worker struct {
	outbox    OutboxSource
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(outbox OutboxSource, publisher Publisher, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{
		outbox:    outbox,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.Error("audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		records, err := w.outbox.FetchUnpublished(ctx, w.batchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		published := make([]uuid.UUID, 0, len(records))
		for _, record := range records {
			if err := w.publisher.Publish(ctx, record.Key, record.Payload); err != nil {
				// Publish the rest next tick; mark what made it through.
				if markErr := w.mark(ctx, published); markErr != nil {
					return markErr
				}
				return err
			}
			published = append(published, record.ID)
		}
		if err := w.mark(ctx, published); err != nil {
			return err
		}
		if len(records) < w.batchSize {
			return nil
		}
	}
}

func (w *Worker) mark(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return w.outbox.MarkPublished(ctx, ids)
}
