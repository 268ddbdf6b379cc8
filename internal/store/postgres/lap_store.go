package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// LapStore implements domain.LapStore using PostgreSQL.
type LapStore struct {
	pool *pgxpool.Pool
}

// NewLapStore creates a new LapStore backed by the given pool.
func NewLapStore(pool *pgxpool.Pool) *LapStore {
	return &LapStore{pool: pool}
}

// Create records one completed lap.
func (s *LapStore) Create(ctx context.Context, l domain.Lap) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO laps (id, runner_id) VALUES ($1, $2)`,
		l.ID, l.RunnerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: create lap: %w", err)
	}
	return nil
}

// Delete removes a lap and returns the deleted row so the caller knows which
// runner's aggregate to refresh.
func (s *LapStore) Delete(ctx context.Context, id string) (domain.Lap, error) {
	var l domain.Lap
	err := s.pool.QueryRow(ctx,
		`DELETE FROM laps WHERE id = $1 RETURNING id, runner_id`,
		id,
	).Scan(&l.ID, &l.RunnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lap{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Lap{}, fmt.Errorf("postgres: delete lap: %w", err)
	}
	return l, nil
}

// CountByRunner returns the number of laps recorded for a runner.
func (s *LapStore) CountByRunner(ctx context.Context, runnerID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM laps WHERE runner_id = $1`,
		runnerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count laps: %w", err)
	}
	return n, nil
}
