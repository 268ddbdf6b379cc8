// Package worker runs the trigger consumer: it subscribes to record lifecycle
// events and drives aggregate recomputes and settlement jobs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// Recomputer rebuilds one runner's aggregates.
type Recomputer interface {
	Recompute(ctx context.Context, runnerID string) error
}

// JobRunner executes one pending settlement job to a terminal state.
type JobRunner interface {
	RunJob(ctx context.Context, jobID string) error
}

// Consumer subscribes to the record event channel and dispatches each event.
// Delivery is at-least-once and unordered; recompute is a pure function of
// current state, so duplicates and races between events for the same runner
// all converge.
type Consumer struct {
	bus        domain.EventBus
	aggregates Recomputer
	settlement JobRunner
	logger     *slog.Logger
}

// NewConsumer creates a new Consumer.
func NewConsumer(bus domain.EventBus, aggregates Recomputer, settlement JobRunner, logger *slog.Logger) *Consumer {
	return &Consumer{
		bus:        bus,
		aggregates: aggregates,
		settlement: settlement,
		logger:     logger.With(slog.String("component", "worker")),
	}
}

// Run subscribes and processes events until ctx is cancelled. Individual
// event failures are logged and skipped; only subscription loss ends the
// loop.
func (c *Consumer) Run(ctx context.Context) error {
	events, err := c.bus.Subscribe(ctx, domain.EventChannel)
	if err != nil {
		return fmt.Errorf("worker: subscribe: %w", err)
	}

	c.logger.Info("worker started", slog.String("channel", domain.EventChannel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			c.handle(ctx, payload)
		}
	}
}

// handle decodes and dispatches one event.
func (c *Consumer) handle(ctx context.Context, payload []byte) {
	var event domain.RecordEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logger.Warn("malformed event dropped", slog.String("error", err.Error()))
		return
	}

	switch event.Type {
	case domain.EventPledgeCreated, domain.EventLapCreated, domain.EventLapDeleted:
		if event.RunnerID == "" {
			c.logger.Warn("event without runner dropped", slog.String("type", event.Type))
			return
		}
		if err := c.aggregates.Recompute(ctx, event.RunnerID); err != nil {
			c.logger.Error("recompute failed",
				slog.String("type", event.Type),
				slog.String("runner_id", event.RunnerID),
				slog.String("error", err.Error()),
			)
		}
	case domain.EventSettlementRequested:
		if event.JobID == "" {
			c.logger.Warn("settlement event without job dropped")
			return
		}
		if err := c.settlement.RunJob(ctx, event.JobID); err != nil {
			c.logger.Error("settlement job run failed",
				slog.String("job_id", event.JobID),
				slog.String("error", err.Error()),
			)
		}
	default:
		c.logger.Warn("unknown event type dropped", slog.String("type", event.Type))
	}
}
