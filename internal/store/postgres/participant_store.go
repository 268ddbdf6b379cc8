package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// ParticipantStore implements domain.ParticipantStore using PostgreSQL.
type ParticipantStore struct {
	pool *pgxpool.Pool
}

// NewParticipantStore creates a new ParticipantStore backed by the given pool.
func NewParticipantStore(pool *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{pool: pool}
}

// Get returns a single participant by ID.
func (s *ParticipantStore) Get(ctx context.Context, id string) (domain.Participant, error) {
	var p domain.Participant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, role, lap_count, owed_total FROM participants WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Role, &p.LapCount, &p.OwedTotal)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("postgres: get participant: %w", err)
	}
	return p, nil
}

// List returns all participants ordered by name.
func (s *ParticipantStore) List(ctx context.Context) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, role, lap_count, owed_total FROM participants ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.LapCount, &p.OwedTotal); err != nil {
			return nil, fmt.Errorf("postgres: scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list participants: %w", err)
	}
	return out, nil
}

// MergeAggregates upserts only the derived lap_count and owed_total columns.
// A missing row is created with empty name and the default role; an existing
// row keeps its name and role untouched.
func (s *ParticipantStore) MergeAggregates(ctx context.Context, id string, lapCount int, owedTotal float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO participants (id, lap_count, owed_total)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			lap_count  = EXCLUDED.lap_count,
			owed_total = EXCLUDED.owed_total,
			updated_at = NOW()`,
		id, lapCount, owedTotal,
	)
	if err != nil {
		return fmt.Errorf("postgres: merge participant aggregates: %w", err)
	}
	return nil
}
