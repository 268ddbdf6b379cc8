package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sponsorenlauf/backend/internal/domain"
	"github.com/sponsorenlauf/backend/internal/store/memory"
)

type SettlementServiceSuite struct {
	suite.Suite
	participants *memory.ParticipantStore
	pledges      *memory.PledgeStore
	jobs         *memory.SettlementJobStore
	lock         *fakeLock
	bus          *fakeBus
	notifier     *fakeNotifier
	svc          *SettlementService
	ctx          context.Context
}

func (s *SettlementServiceSuite) SetupTest() {
	s.participants = memory.NewParticipantStore()
	s.pledges = memory.NewPledgeStore()
	s.jobs = memory.NewSettlementJobStore()
	s.lock = &fakeLock{}
	s.bus = newFakeBus()
	s.notifier = &fakeNotifier{}
	s.svc = NewSettlementService(
		s.participants, s.pledges, s.jobs, s.lock, s.bus, s.notifier,
		time.Minute, slog.Default(),
	)
	s.ctx = context.Background()

	s.participants.Put(domain.Participant{ID: "admin", Name: "Orga", Role: domain.RoleAdmin})
}

func TestSettlementServiceSuite(t *testing.T) {
	suite.Run(t, new(SettlementServiceSuite))
}

func (s *SettlementServiceSuite) seedRunner(id string, lapCount int) {
	s.participants.Put(domain.Participant{ID: id, Role: domain.RoleRunner, LapCount: lapCount})
}

func (s *SettlementServiceSuite) settledAmount(pledgeID string) *float64 {
	pledges, err := s.pledges.List(s.ctx)
	s.Require().NoError(err)
	for _, p := range pledges {
		if p.ID == pledgeID {
			return p.SettledAmount
		}
	}
	s.FailNowf("pledge not found", "pledge %s", pledgeID)
	return nil
}

func (s *SettlementServiceSuite) TestSettleAll() {
	s.Run("freezes fixed and per-lap amounts", func() {
		s.seedRunner("r1", 3)
		s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
			ID: "p1", RunnerID: "r1", Kind: domain.PledgeFixed, Amount: 50,
		}))
		s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
			ID: "p2", RunnerID: "r1", Kind: domain.PledgePerLap, Amount: 2,
		}))

		result, err := s.svc.SettleAll(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, result.SettledCount)

		s.Require().NotNil(s.settledAmount("p1"))
		s.InDelta(50.0, *s.settledAmount("p1"), 1e-9)
		s.Require().NotNil(s.settledAmount("p2"))
		s.InDelta(6.0, *s.settledAmount("p2"), 1e-9)
	})

	s.Run("skips pledges without a runner", func() {
		s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
			ID: "orphan", Kind: domain.PledgeFixed, Amount: 10,
		}))

		result, err := s.svc.SettleAll(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, result.SettledCount, "orphan must not count")
		s.Nil(s.settledAmount("orphan"))
	})

	s.Run("unknown kinds settle to zero but count", func() {
		s.seedRunner("r2", 5)
		s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
			ID: "odd", RunnerID: "r2", Kind: "subscription", Amount: 10,
		}))

		result, err := s.svc.SettleAll(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, result.SettledCount)
		s.Require().NotNil(s.settledAmount("odd"))
		s.Zero(*s.settledAmount("odd"))
	})

	s.Run("missing participant settles against zero laps", func() {
		s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
			ID: "p3", RunnerID: "nobody", Kind: domain.PledgePerLap, Amount: 4,
		}))

		_, err := s.svc.SettleAll(s.ctx)
		s.Require().NoError(err)
		s.Require().NotNil(s.settledAmount("p3"))
		s.Zero(*s.settledAmount("p3"))
	})
}

func (s *SettlementServiceSuite) TestSettleAllAtomicity() {
	s.seedRunner("r1", 1)
	s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
		ID: "p1", RunnerID: "r1", Kind: domain.PledgeFixed, Amount: 50,
	}))

	failing := &failingPledgeStore{PledgeStore: s.pledges, batchErr: errors.New("write refused")}
	svc := NewSettlementService(
		s.participants, failing, s.jobs, s.lock, s.bus, s.notifier,
		time.Minute, slog.Default(),
	)

	_, err := svc.SettleAll(s.ctx)
	s.Require().Error(err)
	s.Nil(s.settledAmount("p1"), "failed batch must leave pledges untouched")
}

func (s *SettlementServiceSuite) TestCalculateAuthorization() {
	s.seedRunner("runner", 2)
	s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
		ID: "p1", RunnerID: "runner", Kind: domain.PledgeFixed, Amount: 50,
	}))

	s.Run("rejects missing identity", func() {
		_, err := s.svc.Calculate(s.ctx, "")
		s.Require().ErrorIs(err, domain.ErrUnauthenticated)
		s.Nil(s.settledAmount("p1"))
	})

	s.Run("rejects non-admin with zero writes", func() {
		_, err := s.svc.Calculate(s.ctx, "runner")
		s.Require().ErrorIs(err, domain.ErrPermissionDenied)
		s.Nil(s.settledAmount("p1"))
		s.Zero(s.lock.acquired, "authorization failure must happen before locking")
	})

	s.Run("rejects unknown caller", func() {
		_, err := s.svc.Calculate(s.ctx, "stranger")
		s.Require().ErrorIs(err, domain.ErrPermissionDenied)
	})

	s.Run("admin settles and releases the lock", func() {
		result, err := s.svc.Calculate(s.ctx, "admin")
		s.Require().NoError(err)
		s.Equal(1, result.SettledCount)
		s.Equal(1, s.lock.acquired)
		s.Equal(1, s.lock.released)
	})

	s.Run("held lock surfaces as conflict", func() {
		s.lock.held = true
		_, err := s.svc.Calculate(s.ctx, "admin")
		s.Require().ErrorIs(err, domain.ErrLockHeld)
	})
}

func (s *SettlementServiceSuite) TestRequest() {
	job, err := s.svc.Request(s.ctx, "admin")
	s.Require().NoError(err)
	s.Equal(domain.JobPending, job.Status)
	s.Equal("admin", job.RequestedBy)

	stored, err := s.jobs.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobPending, stored.Status)

	events := s.bus.events()
	s.Require().Len(events, 1)
	s.Equal(domain.EventSettlementRequested, events[0].Type)
	s.Equal(job.ID, events[0].JobID)
}

func (s *SettlementServiceSuite) TestRunJob() {
	s.seedRunner("r1", 2)
	s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
		ID: "p1", RunnerID: "r1", Kind: domain.PledgePerLap, Amount: 3,
	}))

	s.Run("marks success and notifies", func() {
		job, err := s.svc.Request(s.ctx, "admin")
		s.Require().NoError(err)

		s.Require().NoError(s.svc.RunJob(s.ctx, job.ID))

		stored, err := s.jobs.Get(s.ctx, job.ID)
		s.Require().NoError(err)
		s.Equal(domain.JobSuccess, stored.Status)
		s.Equal(1, stored.SettledCount)
		s.NotNil(stored.FinishedAt)
		s.Contains(s.notifier.notified(), "settlement_completed")
	})

	s.Run("records failure as terminal error", func() {
		s.lock.held = true
		job, err := s.svc.Request(s.ctx, "admin")
		s.Require().NoError(err)

		s.Require().NoError(s.svc.RunJob(s.ctx, job.ID))

		stored, err := s.jobs.Get(s.ctx, job.ID)
		s.Require().NoError(err)
		s.Equal(domain.JobError, stored.Status)
		s.NotEmpty(stored.ErrorMessage)
		s.Contains(s.notifier.notified(), "settlement_failed")
		s.lock.held = false
	})

	s.Run("finished job is not rerun", func() {
		latest, err := s.jobs.Latest(s.ctx)
		s.Require().NoError(err)

		s.Require().NoError(s.svc.RunJob(s.ctx, latest.ID))

		stored, err := s.jobs.Get(s.ctx, latest.ID)
		s.Require().NoError(err)
		s.Equal(domain.JobError, stored.Status, "terminal status must not change")
	})

	s.Run("unknown job errors", func() {
		err := s.svc.RunJob(s.ctx, "missing")
		s.Require().ErrorIs(err, domain.ErrNotFound)
	})
}
