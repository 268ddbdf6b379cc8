package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// settlementLockKey guards the settlement pass across processes: at most one
// pass runs at a time no matter how it was triggered.
const settlementLockKey = "settlement"

// Notifier delivers operator alerts for settlement outcomes.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// SettlementService freezes pledge amounts. A pass snapshots every runner's
// stored lap aggregate, computes the final amount for every pledge, and
// commits all frozen amounts in one atomic batch.
type SettlementService struct {
	participants domain.ParticipantStore
	pledges      domain.PledgeStore
	jobs         domain.SettlementJobStore
	locks        domain.LockManager
	bus          domain.EventBus
	notifier     Notifier
	lockTTL      time.Duration
	logger       *slog.Logger
}

// NewSettlementService creates a new SettlementService. notifier may be nil.
func NewSettlementService(
	participants domain.ParticipantStore,
	pledges domain.PledgeStore,
	jobs domain.SettlementJobStore,
	locks domain.LockManager,
	bus domain.EventBus,
	notifier Notifier,
	lockTTL time.Duration,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		participants: participants,
		pledges:      pledges,
		jobs:         jobs,
		locks:        locks,
		bus:          bus,
		notifier:     notifier,
		lockTTL:      lockTTL,
		logger:       logger.With(slog.String("component", "settlement_service")),
	}
}

// Authorize checks that the caller may run administrator actions. An empty
// caller ID means the request carried no identity; a caller whose participant
// record is missing or not role=admin is denied. No reads or writes of pledge
// or lap data happen before this check.
func (s *SettlementService) Authorize(ctx context.Context, callerID string) error {
	if callerID == "" {
		return domain.ErrUnauthenticated
	}
	caller, err := s.participants.Get(ctx, callerID)
	if err != nil {
		if err == domain.ErrNotFound {
			return domain.ErrPermissionDenied
		}
		return fmt.Errorf("settlement: load caller %s: %w", callerID, err)
	}
	if !caller.IsAdmin() {
		return domain.ErrPermissionDenied
	}
	return nil
}

// SettleAll performs one bulk settlement pass over every pledge in the
// system. Lap counts come from the stored participant aggregates, snapshotted
// once at the start of the pass so every pledge of a runner settles against
// the same count. Pledges without a runner are skipped entirely; pledges of
// an unknown kind settle to 0 but still count toward the total.
func (s *SettlementService) SettleAll(ctx context.Context) (domain.SettlementResult, error) {
	participants, err := s.participants.List(ctx)
	if err != nil {
		return domain.SettlementResult{}, fmt.Errorf("settlement: list participants: %w", err)
	}
	lapCounts := make(map[string]int, len(participants))
	for _, p := range participants {
		lapCounts[p.ID] = p.LapCount
	}

	pledges, err := s.pledges.List(ctx)
	if err != nil {
		return domain.SettlementResult{}, fmt.Errorf("settlement: list pledges: %w", err)
	}

	settled := make([]domain.SettledPledge, 0, len(pledges))
	for _, p := range pledges {
		if p.RunnerID == "" {
			s.logger.Warn("pledge without runner skipped",
				slog.String("pledge_id", p.ID),
			)
			continue
		}
		// A runner with no participant row settles against zero laps.
		settled = append(settled, domain.SettledPledge{
			PledgeID: p.ID,
			Amount:   p.SettledAmountValue(lapCounts[p.RunnerID]),
		})
	}

	if err := s.pledges.SettleBatch(ctx, settled); err != nil {
		return domain.SettlementResult{}, fmt.Errorf("settlement: commit batch: %w", err)
	}

	s.logger.Info("settlement pass complete",
		slog.Int("settled_count", len(settled)),
		slog.Int("pledge_count", len(pledges)),
	)
	return domain.SettlementResult{SettledCount: len(settled)}, nil
}

// Calculate is the direct RPC form of settlement: authorize the caller, take
// the cross-process lock, and run one pass. Returns domain.ErrLockHeld when a
// pass is already in flight.
func (s *SettlementService) Calculate(ctx context.Context, callerID string) (domain.SettlementResult, error) {
	if err := s.Authorize(ctx, callerID); err != nil {
		return domain.SettlementResult{}, err
	}

	unlock, err := s.locks.Acquire(ctx, settlementLockKey, s.lockTTL)
	if err != nil {
		return domain.SettlementResult{}, err
	}
	defer unlock()

	return s.SettleAll(ctx)
}

// Request records a settlement request as a pending job and publishes a
// settlement.requested event for the worker to pick up. The job row is the
// durable record of the administrator action.
func (s *SettlementService) Request(ctx context.Context, callerID string) (domain.SettlementJob, error) {
	if err := s.Authorize(ctx, callerID); err != nil {
		return domain.SettlementJob{}, err
	}

	job := domain.SettlementJob{
		ID:          uuid.New().String(),
		RequestedBy: callerID,
		Status:      domain.JobPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return domain.SettlementJob{}, fmt.Errorf("settlement: create job: %w", err)
	}

	payload, err := json.Marshal(domain.RecordEvent{
		Type:  domain.EventSettlementRequested,
		JobID: job.ID,
	})
	if err != nil {
		return domain.SettlementJob{}, fmt.Errorf("settlement: marshal event: %w", err)
	}
	if err := s.bus.Publish(ctx, domain.EventChannel, payload); err != nil {
		// The job row exists; a stalled event only delays execution until an
		// operator re-publishes or runs Calculate directly.
		s.logger.Error("publish settlement.requested failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("settlement requested",
		slog.String("job_id", job.ID),
		slog.String("requested_by", callerID),
	)
	return job, nil
}

// Job returns one settlement job by ID.
func (s *SettlementService) Job(ctx context.Context, id string) (domain.SettlementJob, error) {
	return s.jobs.Get(ctx, id)
}

// RunJob executes a pending settlement job: one pass under the lock, then a
// single terminal status write. Every failure path, including a recovered
// panic, funnels into one MarkError call; the status guard in the job store
// makes the terminal write exactly-once even if RunJob itself is retried.
func (s *SettlementService) RunJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("settlement: load job %s: %w", jobID, err)
	}
	if job.Status != domain.JobPending {
		s.logger.Info("settlement job already finished, skipping",
			slog.String("job_id", jobID),
			slog.String("status", string(job.Status)),
		)
		return nil
	}

	result, runErr := s.runGuarded(ctx)
	if runErr != nil {
		s.logger.Error("settlement job failed",
			slog.String("job_id", jobID),
			slog.String("error", runErr.Error()),
		)
		if err := s.jobs.MarkError(ctx, jobID, runErr.Error()); err != nil {
			return fmt.Errorf("settlement: mark job %s error: %w", jobID, err)
		}
		s.notify(ctx, "settlement_failed", "Settlement failed",
			fmt.Sprintf("Job %s failed: %v", jobID, runErr))
		return nil
	}

	if err := s.jobs.MarkSuccess(ctx, jobID, result.SettledCount); err != nil {
		return fmt.Errorf("settlement: mark job %s success: %w", jobID, err)
	}
	s.notify(ctx, "settlement_completed", "Settlement completed",
		fmt.Sprintf("Job %s settled %d pledges", jobID, result.SettledCount))
	return nil
}

// runGuarded runs one locked settlement pass and converts a panic into an
// error so the caller can record it on the job.
func (s *SettlementService) runGuarded(ctx context.Context) (result domain.SettlementResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("settlement: pass panicked: %v", r)
		}
	}()

	unlock, err := s.locks.Acquire(ctx, settlementLockKey, s.lockTTL)
	if err != nil {
		return domain.SettlementResult{}, err
	}
	defer unlock()

	return s.SettleAll(ctx)
}

func (s *SettlementService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.Warn("operator notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
