package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// MailStore implements domain.MailStore using PostgreSQL. The table acts as an
// outbound queue drained by an external mail transport.
type MailStore struct {
	pool *pgxpool.Pool
}

// NewMailStore creates a new MailStore backed by the given pool.
func NewMailStore(pool *pgxpool.Pool) *MailStore {
	return &MailStore{pool: pool}
}

// Append adds one message to the queue.
func (s *MailStore) Append(ctx context.Context, msg domain.MailMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mail_queue (id, recipients, subject, html, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.To, msg.Subject, msg.HTML, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append mail: %w", err)
	}
	return nil
}
