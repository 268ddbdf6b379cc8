package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// SettlementJobStore implements domain.SettlementJobStore using PostgreSQL.
type SettlementJobStore struct {
	pool *pgxpool.Pool
}

// NewSettlementJobStore creates a new SettlementJobStore backed by the given pool.
func NewSettlementJobStore(pool *pgxpool.Pool) *SettlementJobStore {
	return &SettlementJobStore{pool: pool}
}

const jobSelectCols = `id, requested_by, status, settled_count, error_message, created_at, finished_at`

func scanJob(row pgx.Row) (domain.SettlementJob, error) {
	var j domain.SettlementJob
	err := row.Scan(&j.ID, &j.RequestedBy, &j.Status, &j.SettledCount,
		&j.ErrorMessage, &j.CreatedAt, &j.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SettlementJob{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SettlementJob{}, err
	}
	return j, nil
}

// Create inserts a new pending job.
func (s *SettlementJobStore) Create(ctx context.Context, job domain.SettlementJob) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settlement_jobs (id, requested_by, status, settled_count, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.RequestedBy, job.Status, job.SettledCount, job.ErrorMessage, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create settlement job: %w", err)
	}
	return nil
}

// Get returns a single job by ID.
func (s *SettlementJobStore) Get(ctx context.Context, id string) (domain.SettlementJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobSelectCols+` FROM settlement_jobs WHERE id = $1`, id))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.SettlementJob{}, err
	}
	if err != nil {
		return domain.SettlementJob{}, fmt.Errorf("postgres: get settlement job: %w", err)
	}
	return j, nil
}

// Latest returns the most recently created job.
func (s *SettlementJobStore) Latest(ctx context.Context) (domain.SettlementJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobSelectCols+` FROM settlement_jobs ORDER BY created_at DESC, id DESC LIMIT 1`))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.SettlementJob{}, err
	}
	if err != nil {
		return domain.SettlementJob{}, fmt.Errorf("postgres: latest settlement job: %w", err)
	}
	return j, nil
}

// MarkSuccess transitions a pending job to success. The status guard in the
// WHERE clause makes the terminal write exactly-once: a job that already
// finished is left untouched and ErrJobFinished is returned.
func (s *SettlementJobStore) MarkSuccess(ctx context.Context, id string, settledCount int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE settlement_jobs
		SET status = $2, settled_count = $3, finished_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, domain.JobSuccess, settledCount, domain.JobPending,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark settlement job success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.finishedOrMissing(ctx, id)
	}
	return nil
}

// MarkError transitions a pending job to error with the given message.
func (s *SettlementJobStore) MarkError(ctx context.Context, id string, message string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE settlement_jobs
		SET status = $2, error_message = $3, finished_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, domain.JobError, message, domain.JobPending,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark settlement job error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.finishedOrMissing(ctx, id)
	}
	return nil
}

// finishedOrMissing distinguishes a guarded update that matched no rows: the
// job either does not exist or is already terminal.
func (s *SettlementJobStore) finishedOrMissing(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM settlement_jobs WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check settlement job: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrJobFinished
}
