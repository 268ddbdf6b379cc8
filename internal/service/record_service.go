package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// RecordService is the mutation surface for laps and pledges. Every write
// that affects a runner's aggregate publishes a lifecycle event afterwards so
// the trigger worker recomputes; pledge deletion deliberately publishes
// nothing (see domain event docs), leaving the aggregate stale until the
// runner's next event.
type RecordService struct {
	pledges domain.PledgeStore
	laps    domain.LapStore
	bus     domain.EventBus
	logger  *slog.Logger
}

// NewRecordService creates a new RecordService.
func NewRecordService(
	pledges domain.PledgeStore,
	laps domain.LapStore,
	bus domain.EventBus,
	logger *slog.Logger,
) *RecordService {
	return &RecordService{
		pledges: pledges,
		laps:    laps,
		bus:     bus,
		logger:  logger.With(slog.String("component", "record_service")),
	}
}

// CreateLap records one completed lap for a runner.
func (s *RecordService) CreateLap(ctx context.Context, runnerID string) (domain.Lap, error) {
	if runnerID == "" {
		return domain.Lap{}, fmt.Errorf("record: create lap: runner id required")
	}

	lap := domain.Lap{ID: uuid.New().String(), RunnerID: runnerID}
	if err := s.laps.Create(ctx, lap); err != nil {
		return domain.Lap{}, fmt.Errorf("record: create lap: %w", err)
	}

	s.publish(ctx, domain.RecordEvent{Type: domain.EventLapCreated, RunnerID: runnerID})
	return lap, nil
}

// DeleteLap removes a lap and signals a recompute for the affected runner.
func (s *RecordService) DeleteLap(ctx context.Context, id string) error {
	lap, err := s.laps.Delete(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return err
		}
		return fmt.Errorf("record: delete lap %s: %w", id, err)
	}

	s.publish(ctx, domain.RecordEvent{Type: domain.EventLapDeleted, RunnerID: lap.RunnerID})
	return nil
}

// CreatePledge stores a new pledge. A pledge may arrive without a runner; it
// is stored as-is but no event fires, and settlement will skip it.
func (s *RecordService) CreatePledge(ctx context.Context, p domain.Pledge) (domain.Pledge, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.SettledAmount = nil

	if p.Kind != domain.PledgeFixed && p.Kind != domain.PledgePerLap {
		return domain.Pledge{}, fmt.Errorf("record: create pledge: unknown kind %q", p.Kind)
	}

	if err := s.pledges.Create(ctx, p); err != nil {
		return domain.Pledge{}, fmt.Errorf("record: create pledge: %w", err)
	}

	if p.RunnerID == "" {
		s.logger.Warn("pledge created without runner, no recompute triggered",
			slog.String("pledge_id", p.ID),
		)
		return p, nil
	}

	s.publish(ctx, domain.RecordEvent{Type: domain.EventPledgeCreated, RunnerID: p.RunnerID})
	return p, nil
}

// DeletePledge removes a pledge. No event is published: the affected runner's
// aggregate keeps counting the deleted pledge until their next lap or pledge
// event recomputes it.
func (s *RecordService) DeletePledge(ctx context.Context, id string) error {
	if err := s.pledges.Delete(ctx, id); err != nil {
		if err == domain.ErrNotFound {
			return err
		}
		return fmt.Errorf("record: delete pledge %s: %w", id, err)
	}
	return nil
}

// PledgesByRunner lists a runner's pledges.
func (s *RecordService) PledgesByRunner(ctx context.Context, runnerID string) ([]domain.Pledge, error) {
	return s.pledges.ListByRunner(ctx, runnerID)
}

// publish sends a lifecycle event. Fire-and-forget: the store write already
// succeeded, and a missed event heals on the runner's next one.
func (s *RecordService) publish(ctx context.Context, event domain.RecordEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal record event failed",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, domain.EventChannel, payload); err != nil {
		s.logger.Error("publish record event failed",
			slog.String("type", event.Type),
			slog.String("runner_id", event.RunnerID),
			slog.String("error", err.Error()),
		)
	}
}
