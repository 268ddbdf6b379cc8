package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// SettlementJobStore is an in-memory domain.SettlementJobStore.
type SettlementJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.SettlementJob
}

// NewSettlementJobStore creates an empty SettlementJobStore.
func NewSettlementJobStore() *SettlementJobStore {
	return &SettlementJobStore{jobs: make(map[string]domain.SettlementJob)}
}

// Create inserts a new pending job.
func (s *SettlementJobStore) Create(_ context.Context, job domain.SettlementJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.jobs[job.ID] = job
	return nil
}

// Get returns a single job by ID.
func (s *SettlementJobStore) Get(_ context.Context, id string) (domain.SettlementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.SettlementJob{}, domain.ErrNotFound
	}
	return j, nil
}

// Latest returns the most recently created job.
func (s *SettlementJobStore) Latest(_ context.Context) (domain.SettlementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest domain.SettlementJob
	found := false
	for _, j := range s.jobs {
		if !found || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
			found = true
		}
	}
	if !found {
		return domain.SettlementJob{}, domain.ErrNotFound
	}
	return latest, nil
}

// MarkSuccess transitions a pending job to success exactly once.
func (s *SettlementJobStore) MarkSuccess(_ context.Context, id string, settledCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != domain.JobPending {
		return domain.ErrJobFinished
	}
	now := time.Now()
	j.Status = domain.JobSuccess
	j.SettledCount = settledCount
	j.FinishedAt = &now
	s.jobs[id] = j
	return nil
}

// MarkError transitions a pending job to error exactly once.
func (s *SettlementJobStore) MarkError(_ context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != domain.JobPending {
		return domain.ErrJobFinished
	}
	now := time.Now()
	j.Status = domain.JobError
	j.ErrorMessage = message
	j.FinishedAt = &now
	s.jobs[id] = j
	return nil
}
