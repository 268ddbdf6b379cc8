package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sponsorenlauf/backend/internal/domain"
	"github.com/sponsorenlauf/backend/internal/store/memory"
)

type RecordServiceSuite struct {
	suite.Suite
	pledges *memory.PledgeStore
	laps    *memory.LapStore
	bus     *fakeBus
	svc     *RecordService
	ctx     context.Context
}

func (s *RecordServiceSuite) SetupTest() {
	s.pledges = memory.NewPledgeStore()
	s.laps = memory.NewLapStore()
	s.bus = newFakeBus()
	s.svc = NewRecordService(s.pledges, s.laps, s.bus, slog.Default())
	s.ctx = context.Background()
}

func TestRecordServiceSuite(t *testing.T) {
	suite.Run(t, new(RecordServiceSuite))
}

func (s *RecordServiceSuite) TestLapLifecycle() {
	s.Run("create publishes lap.created", func() {
		lap, err := s.svc.CreateLap(s.ctx, "r1")
		s.Require().NoError(err)
		s.NotEmpty(lap.ID)

		events := s.bus.events()
		s.Require().Len(events, 1)
		s.Equal(domain.EventLapCreated, events[0].Type)
		s.Equal("r1", events[0].RunnerID)
	})

	s.Run("create without runner fails", func() {
		_, err := s.svc.CreateLap(s.ctx, "")
		s.Require().Error(err)
	})

	s.Run("delete publishes lap.deleted for the affected runner", func() {
		lap, err := s.svc.CreateLap(s.ctx, "r2")
		s.Require().NoError(err)

		s.Require().NoError(s.svc.DeleteLap(s.ctx, lap.ID))

		events := s.bus.events()
		last := events[len(events)-1]
		s.Equal(domain.EventLapDeleted, last.Type)
		s.Equal("r2", last.RunnerID)
	})

	s.Run("delete of unknown lap returns not found", func() {
		s.Require().ErrorIs(s.svc.DeleteLap(s.ctx, "missing"), domain.ErrNotFound)
	})
}

func (s *RecordServiceSuite) TestPledgeLifecycle() {
	s.Run("create publishes pledge.created", func() {
		pledge, err := s.svc.CreatePledge(s.ctx, domain.Pledge{
			RunnerID: "r1", SponsorEmail: "anna@example.com",
			Kind: domain.PledgeFixed, Amount: 50,
		})
		s.Require().NoError(err)
		s.NotEmpty(pledge.ID)

		events := s.bus.events()
		s.Require().Len(events, 1)
		s.Equal(domain.EventPledgeCreated, events[0].Type)
		s.Equal("r1", events[0].RunnerID)
	})

	s.Run("create without runner stores but stays silent", func() {
		_, err := s.svc.CreatePledge(s.ctx, domain.Pledge{
			SponsorEmail: "anna@example.com",
			Kind:         domain.PledgeFixed, Amount: 20,
		})
		s.Require().NoError(err)
		s.Len(s.bus.events(), 1, "no event for a runnerless pledge")
	})

	s.Run("rejects unknown kind", func() {
		_, err := s.svc.CreatePledge(s.ctx, domain.Pledge{
			RunnerID: "r1", Kind: "subscription", Amount: 5,
		})
		s.Require().Error(err)
	})

	s.Run("incoming settled amount is cleared", func() {
		amount := 99.0
		pledge, err := s.svc.CreatePledge(s.ctx, domain.Pledge{
			RunnerID: "r1", Kind: domain.PledgeFixed, Amount: 10,
			SettledAmount: &amount,
		})
		s.Require().NoError(err)
		s.Nil(pledge.SettledAmount)
	})

	s.Run("delete publishes nothing", func() {
		pledge, err := s.svc.CreatePledge(s.ctx, domain.Pledge{
			RunnerID: "r3", Kind: domain.PledgeFixed, Amount: 10,
		})
		s.Require().NoError(err)
		before := len(s.bus.events())

		s.Require().NoError(s.svc.DeletePledge(s.ctx, pledge.ID))

		s.Len(s.bus.events(), before, "pledge deletion fires no event")
	})
}
