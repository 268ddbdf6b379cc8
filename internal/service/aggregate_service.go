// Package service contains the aggregation, settlement, invoicing, and record
// mutation logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// AggregateService recomputes the derived {lapCount, owedTotal} pair for a
// runner from the full current state of their pledges and laps. Recompute is
// idempotent: it carries no deltas, so duplicate or reordered trigger events
// converge on the same result.
type AggregateService struct {
	participants domain.ParticipantStore
	pledges      domain.PledgeStore
	laps         domain.LapStore
	cache        domain.AggregateCache
	logger       *slog.Logger
}

// NewAggregateService creates a new AggregateService. cache may be nil, in
// which case the cache-refresh step is skipped.
func NewAggregateService(
	participants domain.ParticipantStore,
	pledges domain.PledgeStore,
	laps domain.LapStore,
	cache domain.AggregateCache,
	logger *slog.Logger,
) *AggregateService {
	return &AggregateService{
		participants: participants,
		pledges:      pledges,
		laps:         laps,
		cache:        cache,
		logger:       logger.With(slog.String("component", "aggregate_service")),
	}
}

// Recompute rebuilds the runner's aggregates from scratch: owedTotal is the
// sum of fixed pledge amounts plus per-lap amounts times the current lap
// count, lapCount is the lap count itself. The result is merge-written so the
// participant's name and role are untouched, and the row is created when the
// runner has records but no participant entry yet.
func (s *AggregateService) Recompute(ctx context.Context, runnerID string) error {
	pledges, err := s.pledges.ListByRunner(ctx, runnerID)
	if err != nil {
		return fmt.Errorf("aggregate: list pledges for %s: %w", runnerID, err)
	}

	lapCount, err := s.laps.CountByRunner(ctx, runnerID)
	if err != nil {
		return fmt.Errorf("aggregate: count laps for %s: %w", runnerID, err)
	}

	var fixedSum, perLapSum float64
	for _, p := range pledges {
		switch p.Kind {
		case domain.PledgeFixed:
			fixedSum += p.Amount
		case domain.PledgePerLap:
			perLapSum += p.Amount
		default:
			s.logger.Warn("pledge with unknown kind ignored in aggregate",
				slog.String("pledge_id", p.ID),
				slog.String("kind", string(p.Kind)),
			)
		}
	}
	owedTotal := fixedSum + perLapSum*float64(lapCount)

	if err := s.participants.MergeAggregates(ctx, runnerID, lapCount, owedTotal); err != nil {
		return fmt.Errorf("aggregate: merge for %s: %w", runnerID, err)
	}

	// Cache refresh is best-effort: a failure leaves readers on the store
	// fallback path.
	if s.cache != nil {
		if err := s.cache.Set(ctx, runnerID, lapCount, owedTotal); err != nil {
			s.logger.Warn("aggregate cache refresh failed",
				slog.String("runner_id", runnerID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Debug("aggregate recomputed",
		slog.String("runner_id", runnerID),
		slog.Int("lap_count", lapCount),
		slog.Float64("owed_total", owedTotal),
	)
	return nil
}

// Participant returns one participant, preferring the cached aggregate pair
// when present. The cache is written on every recompute, so a hit is at least
// as fresh as the stored row.
func (s *AggregateService) Participant(ctx context.Context, id string) (domain.Participant, error) {
	p, err := s.participants.Get(ctx, id)
	if err != nil {
		return domain.Participant{}, err
	}

	if s.cache != nil {
		lapCount, owedTotal, cacheErr := s.cache.Get(ctx, id)
		if cacheErr == nil {
			p.LapCount = lapCount
			p.OwedTotal = owedTotal
		} else if !errors.Is(cacheErr, domain.ErrNotFound) {
			s.logger.Warn("aggregate cache read failed",
				slog.String("runner_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return p, nil
}

// Participants returns all participants from the store.
func (s *AggregateService) Participants(ctx context.Context) ([]domain.Participant, error) {
	return s.participants.List(ctx)
}
