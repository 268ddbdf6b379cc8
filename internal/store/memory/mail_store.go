package memory

import (
	"context"
	"sync"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// MailStore is an in-memory domain.MailStore.
type MailStore struct {
	mu       sync.RWMutex
	messages []domain.MailMessage
}

// NewMailStore creates an empty MailStore.
func NewMailStore() *MailStore {
	return &MailStore{}
}

// Append adds one message to the queue.
func (s *MailStore) Append(_ context.Context, msg domain.MailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of everything appended so far, in order.
func (s *MailStore) Messages() []domain.MailMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MailMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
