package worker

import (
	"context"

	"bead-inventory-service/internal/broker"
	"bead-inventory-service/internal/redisclient"
	"bead-inventory-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatsWorker consumes the event stream and drops the affected user's
// cached consume stats, so the next read recomputes from the ledger.
type StatsWorker struct {
	consumer *broker.Consumer
	redis    *redisclient.Client
	logger   *zap.Logger
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(consumer *broker.Consumer, redis *redisclient.Client) *StatsWorker {
	return &StatsWorker{
		consumer: consumer,
		redis:    redis,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *StatsWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stats worker")

	return w.consumer.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		base, err := broker.DecodeBaseEvent(msg)
		if err != nil {
			// Bad payloads are skipped, not retried.
			w.logger.Warn("Skipping undecodable event", zap.Error(err))
			return nil
		}

		if err := w.redis.InvalidateConsumeStats(ctx, base.UserID); err != nil {
			w.logger.Error("Failed to invalidate consume stats",
				zap.Int64("user_id", base.UserID),
				zap.String("event_type", base.EventType),
				zap.Error(err))
			return err
		}
		return nil
	})
}

// Stop stops the worker
func (w *StatsWorker) Stop() error {
	w.logger.Info("Stopping stats worker")
	return w.consumer.Close()
}
