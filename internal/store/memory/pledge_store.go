package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// PledgeStore is an in-memory domain.PledgeStore. Pledges are kept in
// insertion order because invoice grouping depends on it.
type PledgeStore struct {
	mu      sync.RWMutex
	pledges []domain.Pledge
}

// NewPledgeStore creates an empty PledgeStore.
func NewPledgeStore() *PledgeStore {
	return &PledgeStore{}
}

// Create appends a new pledge.
func (s *PledgeStore) Create(_ context.Context, p domain.Pledge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.pledges {
		if existing.ID == p.ID {
			return domain.ErrAlreadyExists
		}
	}
	s.pledges = append(s.pledges, p)
	return nil
}

// Delete removes a pledge by ID.
func (s *PledgeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pledges {
		if p.ID == id {
			s.pledges = append(s.pledges[:i], s.pledges[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ListByRunner returns pledges tied to a runner in insertion order.
func (s *PledgeStore) ListByRunner(_ context.Context, runnerID string) ([]domain.Pledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Pledge
	for _, p := range s.pledges {
		if p.RunnerID == runnerID {
			out = append(out, p)
		}
	}
	return out, nil
}

// List returns all pledges in insertion order.
func (s *PledgeStore) List(_ context.Context) ([]domain.Pledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Pledge, len(s.pledges))
	copy(out, s.pledges)
	return out, nil
}

// SettleBatch validates every staged update before applying any, so a bad ID
// leaves the store unchanged, matching the transactional postgres behavior.
func (s *PledgeStore) SettleBatch(_ context.Context, settled []domain.SettledPledge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := make(map[string]int, len(s.pledges))
	for i, p := range s.pledges {
		idx[p.ID] = i
	}
	for _, sp := range settled {
		if _, ok := idx[sp.PledgeID]; !ok {
			return fmt.Errorf("memory: settle batch: pledge %s: %w", sp.PledgeID, domain.ErrNotFound)
		}
	}
	for _, sp := range settled {
		amount := sp.Amount
		s.pledges[idx[sp.PledgeID]].SettledAmount = &amount
	}
	return nil
}
