package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// PledgeStore implements domain.PledgeStore using PostgreSQL.
type PledgeStore struct {
	pool *pgxpool.Pool
}

// NewPledgeStore creates a new PledgeStore backed by the given pool.
func NewPledgeStore(pool *pgxpool.Pool) *PledgeStore {
	return &PledgeStore{pool: pool}
}

const pledgeSelectCols = `id, runner_id, sponsor_id, sponsor_email, sponsor_name,
	kind, amount, settled_amount`

func scanPledgeRows(rows pgx.Rows) ([]domain.Pledge, error) {
	var pledges []domain.Pledge
	for rows.Next() {
		var p domain.Pledge
		if err := rows.Scan(
			&p.ID, &p.RunnerID, &p.SponsorID, &p.SponsorEmail, &p.SponsorName,
			&p.Kind, &p.Amount, &p.SettledAmount,
		); err != nil {
			return nil, err
		}
		pledges = append(pledges, p)
	}
	return pledges, rows.Err()
}

// Create inserts a new pledge.
func (s *PledgeStore) Create(ctx context.Context, p domain.Pledge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pledges (id, runner_id, sponsor_id, sponsor_email, sponsor_name,
			kind, amount, settled_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.RunnerID, p.SponsorID, p.SponsorEmail, p.SponsorName,
		p.Kind, p.Amount, p.SettledAmount,
	)
	if err != nil {
		return fmt.Errorf("postgres: create pledge: %w", err)
	}
	return nil
}

// Delete removes a pledge by ID.
func (s *PledgeStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pledges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete pledge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByRunner returns all pledges tied to a runner, oldest first.
func (s *PledgeStore) ListByRunner(ctx context.Context, runnerID string) ([]domain.Pledge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pledgeSelectCols+` FROM pledges WHERE runner_id = $1 ORDER BY created_at, id`,
		runnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pledges by runner: %w", err)
	}
	defer rows.Close()

	pledges, err := scanPledgeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan pledges by runner: %w", err)
	}
	return pledges, nil
}

// List returns all pledges, oldest first. Insertion order matters downstream:
// invoice grouping keys off the first occurrence of each sponsor email.
func (s *PledgeStore) List(ctx context.Context) ([]domain.Pledge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ` + pledgeSelectCols + ` FROM pledges ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pledges: %w", err)
	}
	defer rows.Close()

	pledges, err := scanPledgeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan pledges: %w", err)
	}
	return pledges, nil
}

// SettleBatch writes all frozen amounts inside a single transaction so either
// every staged update lands or none do.
func (s *PledgeStore) SettleBatch(ctx context.Context, settled []domain.SettledPledge) error {
	if len(settled) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin settle batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, sp := range settled {
		batch.Queue(`UPDATE pledges SET settled_amount = $2 WHERE id = $1`, sp.PledgeID, sp.Amount)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range settled {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres: settle batch item %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close settle batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit settle batch: %w", err)
	}
	return nil
}
