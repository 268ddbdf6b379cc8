package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sponsorenlauf/backend/internal/domain"
	"github.com/sponsorenlauf/backend/internal/store/memory"
)

type AggregateServiceSuite struct {
	suite.Suite
	participants *memory.ParticipantStore
	pledges      *memory.PledgeStore
	laps         *memory.LapStore
	cache        *fakeCache
	svc          *AggregateService
	ctx          context.Context
}

func (s *AggregateServiceSuite) SetupTest() {
	s.participants = memory.NewParticipantStore()
	s.pledges = memory.NewPledgeStore()
	s.laps = memory.NewLapStore()
	s.cache = newFakeCache()
	s.svc = NewAggregateService(s.participants, s.pledges, s.laps, s.cache, slog.Default())
	s.ctx = context.Background()
}

func TestAggregateServiceSuite(t *testing.T) {
	suite.Run(t, new(AggregateServiceSuite))
}

func (s *AggregateServiceSuite) addLaps(runnerID string, n int) {
	for i := 0; i < n; i++ {
		s.Require().NoError(s.laps.Create(s.ctx, domain.Lap{
			ID:       runnerID + "-lap-" + string(rune('a'+i)),
			RunnerID: runnerID,
		}))
	}
}

func (s *AggregateServiceSuite) TestRecompute() {
	s.Run("fixed plus per-lap pledges", func() {
		s.participants.Put(domain.Participant{ID: "r1", Name: "Mia", Role: domain.RoleRunner})
		s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
			ID: "p1", RunnerID: "r1", Kind: domain.PledgeFixed, Amount: 50,
		}))
		s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
			ID: "p2", RunnerID: "r1", Kind: domain.PledgePerLap, Amount: 2,
		}))
		s.addLaps("r1", 3)

		s.Require().NoError(s.svc.Recompute(s.ctx, "r1"))

		p, err := s.participants.Get(s.ctx, "r1")
		s.Require().NoError(err)
		s.Equal(3, p.LapCount)
		s.InDelta(56.0, p.OwedTotal, 1e-9)
		s.Equal("Mia", p.Name, "merge must not touch the name")
		s.Equal(domain.RoleRunner, p.Role, "merge must not touch the role")
	})

	s.Run("is idempotent", func() {
		s.Require().NoError(s.svc.Recompute(s.ctx, "r1"))
		s.Require().NoError(s.svc.Recompute(s.ctx, "r1"))

		p, err := s.participants.Get(s.ctx, "r1")
		s.Require().NoError(err)
		s.Equal(3, p.LapCount)
		s.InDelta(56.0, p.OwedTotal, 1e-9)
	})

	s.Run("creates missing participant row", func() {
		s.addLaps("ghost", 2)

		s.Require().NoError(s.svc.Recompute(s.ctx, "ghost"))

		p, err := s.participants.Get(s.ctx, "ghost")
		s.Require().NoError(err)
		s.Equal(2, p.LapCount)
		s.Zero(p.OwedTotal)
	})

	s.Run("runner with no records zeroes out", func() {
		s.participants.Put(domain.Participant{ID: "r2", LapCount: 9, OwedTotal: 99})

		s.Require().NoError(s.svc.Recompute(s.ctx, "r2"))

		p, err := s.participants.Get(s.ctx, "r2")
		s.Require().NoError(err)
		s.Zero(p.LapCount)
		s.Zero(p.OwedTotal)
	})
}

func (s *AggregateServiceSuite) TestRecomputeIgnoresUnknownKinds() {
	s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
		ID: "p1", RunnerID: "r1", Kind: "subscription", Amount: 100,
	}))
	s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
		ID: "p2", RunnerID: "r1", Kind: domain.PledgeFixed, Amount: 10,
	}))

	s.Require().NoError(s.svc.Recompute(s.ctx, "r1"))

	p, err := s.participants.Get(s.ctx, "r1")
	s.Require().NoError(err)
	s.InDelta(10.0, p.OwedTotal, 1e-9)
}

func (s *AggregateServiceSuite) TestCacheBehavior() {
	s.Run("recompute refreshes the cache", func() {
		s.Require().NoError(s.pledges.Create(s.ctx, domain.Pledge{
			ID: "p1", RunnerID: "r1", Kind: domain.PledgeFixed, Amount: 25,
		}))

		s.Require().NoError(s.svc.Recompute(s.ctx, "r1"))

		laps, owed, err := s.cache.Get(s.ctx, "r1")
		s.Require().NoError(err)
		s.Zero(laps)
		s.InDelta(25.0, owed, 1e-9)
	})

	s.Run("cache failure is not fatal", func() {
		s.cache.setErr = context.DeadlineExceeded

		s.Require().NoError(s.svc.Recompute(s.ctx, "r1"))

		p, err := s.participants.Get(s.ctx, "r1")
		s.Require().NoError(err)
		s.InDelta(25.0, p.OwedTotal, 1e-9)
	})

	s.Run("participant read prefers the cache", func() {
		s.cache.setErr = nil
		s.participants.Put(domain.Participant{ID: "r9", Name: "Nils", LapCount: 1, OwedTotal: 5})
		s.Require().NoError(s.cache.Set(s.ctx, "r9", 4, 20))

		p, err := s.svc.Participant(s.ctx, "r9")
		s.Require().NoError(err)
		s.Equal(4, p.LapCount)
		s.InDelta(20.0, p.OwedTotal, 1e-9)
		s.Equal("Nils", p.Name)
	})

	s.Run("cache miss falls back to the store", func() {
		s.participants.Put(domain.Participant{ID: "r10", LapCount: 7, OwedTotal: 70})

		p, err := s.svc.Participant(s.ctx, "r10")
		s.Require().NoError(err)
		s.Equal(7, p.LapCount)
		s.InDelta(70.0, p.OwedTotal, 1e-9)
	})
}
