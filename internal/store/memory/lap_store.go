package memory

import (
	"context"
	"sync"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// LapStore is an in-memory domain.LapStore.
type LapStore struct {
	mu   sync.RWMutex
	laps map[string]domain.Lap
}

// NewLapStore creates an empty LapStore.
func NewLapStore() *LapStore {
	return &LapStore{laps: make(map[string]domain.Lap)}
}

// Create records one completed lap.
func (s *LapStore) Create(_ context.Context, l domain.Lap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.laps[l.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.laps[l.ID] = l
	return nil
}

// Delete removes a lap and returns the deleted record.
func (s *LapStore) Delete(_ context.Context, id string) (domain.Lap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.laps[id]
	if !ok {
		return domain.Lap{}, domain.ErrNotFound
	}
	delete(s.laps, id)
	return l, nil
}

// CountByRunner returns the number of laps recorded for a runner.
func (s *LapStore) CountByRunner(_ context.Context, runnerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.laps {
		if l.RunnerID == runnerID {
			n++
		}
	}
	return n, nil
}
