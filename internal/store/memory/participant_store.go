// Package memory provides mutex-guarded in-memory store implementations,
// primarily for tests and local development without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// ParticipantStore is an in-memory domain.ParticipantStore.
type ParticipantStore struct {
	mu           sync.RWMutex
	participants map[string]domain.Participant
}

// NewParticipantStore creates an empty ParticipantStore.
func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{participants: make(map[string]domain.Participant)}
}

// Put inserts or replaces a participant. Test seeding helper; the postgres
// implementation has no equivalent because participants are provisioned out of
// band.
func (s *ParticipantStore) Put(p domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
}

// Get returns a single participant by ID.
func (s *ParticipantStore) Get(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrNotFound
	}
	return p, nil
}

// List returns all participants ordered by name.
func (s *ParticipantStore) List(_ context.Context) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MergeAggregates upserts only the derived fields, creating the row if absent.
func (s *ParticipantStore) MergeAggregates(_ context.Context, id string, lapCount int, owedTotal float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.participants[id]
	p.ID = id
	p.LapCount = lapCount
	p.OwedTotal = owedTotal
	s.participants[id] = p
	return nil
}
