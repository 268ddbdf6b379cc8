package domain

import "context"

// ParticipantStore persists runners and their derived aggregates.
type ParticipantStore interface {
	Get(ctx context.Context, id string) (Participant, error)
	List(ctx context.Context) ([]Participant, error)
	// MergeAggregates upserts only the derived fields: when the participant
	// row is missing it is created with just these fields populated, otherwise
	// name and role are left untouched.
	MergeAggregates(ctx context.Context, id string, lapCount int, owedTotal float64) error
}

// PledgeStore persists sponsor pledges.
type PledgeStore interface {
	Create(ctx context.Context, p Pledge) error
	Delete(ctx context.Context, id string) error
	ListByRunner(ctx context.Context, runnerID string) ([]Pledge, error)
	List(ctx context.Context) ([]Pledge, error)
	// SettleBatch writes all frozen amounts in one atomic batch: either every
	// staged update lands or none do.
	SettleBatch(ctx context.Context, settled []SettledPledge) error
}

// LapStore persists recorded laps.
type LapStore interface {
	Create(ctx context.Context, l Lap) error
	// Delete removes a lap and returns it so the caller can publish the
	// lap.deleted event for the affected runner.
	Delete(ctx context.Context, id string) (Lap, error)
	CountByRunner(ctx context.Context, runnerID string) (int, error)
}

// SettlementJobStore persists settlement attempts. MarkSuccess and MarkError
// only apply to a job still in the pending state; once a terminal status is
// written, further terminal writes return ErrJobFinished.
type SettlementJobStore interface {
	Create(ctx context.Context, job SettlementJob) error
	Get(ctx context.Context, id string) (SettlementJob, error)
	Latest(ctx context.Context) (SettlementJob, error)
	MarkSuccess(ctx context.Context, id string, settledCount int) error
	MarkError(ctx context.Context, id string, message string) error
}

// MailStore is the outbound mail queue. Append-only.
type MailStore interface {
	Append(ctx context.Context, msg MailMessage) error
}
