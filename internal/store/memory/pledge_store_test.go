package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sponsorenlauf/backend/internal/domain"
)

type PledgeStoreSuite struct {
	suite.Suite
	store *PledgeStore
	ctx   context.Context
}

func (s *PledgeStoreSuite) SetupTest() {
	s.store = NewPledgeStore()
	s.ctx = context.Background()
}

func TestPledgeStoreSuite(t *testing.T) {
	suite.Run(t, new(PledgeStoreSuite))
}

func (s *PledgeStoreSuite) TestListPreservesInsertionOrder() {
	s.Require().NoError(s.store.Create(s.ctx, domain.Pledge{ID: "b", RunnerID: "r1"}))
	s.Require().NoError(s.store.Create(s.ctx, domain.Pledge{ID: "a", RunnerID: "r2"}))
	s.Require().NoError(s.store.Create(s.ctx, domain.Pledge{ID: "c", RunnerID: "r1"}))

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("b", all[0].ID)
	s.Equal("a", all[1].ID)
	s.Equal("c", all[2].ID)

	byRunner, err := s.store.ListByRunner(s.ctx, "r1")
	s.Require().NoError(err)
	s.Require().Len(byRunner, 2)
	s.Equal("b", byRunner[0].ID)
	s.Equal("c", byRunner[1].ID)
}

func (s *PledgeStoreSuite) TestSettleBatchIsAllOrNothing() {
	s.Require().NoError(s.store.Create(s.ctx, domain.Pledge{ID: "p1", RunnerID: "r1"}))
	s.Require().NoError(s.store.Create(s.ctx, domain.Pledge{ID: "p2", RunnerID: "r1"}))

	err := s.store.SettleBatch(s.ctx, []domain.SettledPledge{
		{PledgeID: "p1", Amount: 10},
		{PledgeID: "missing", Amount: 5},
	})
	s.Require().ErrorIs(err, domain.ErrNotFound)

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	for _, p := range all {
		s.Nil(p.SettledAmount, "failed batch must apply nothing")
	}

	s.Require().NoError(s.store.SettleBatch(s.ctx, []domain.SettledPledge{
		{PledgeID: "p1", Amount: 10},
		{PledgeID: "p2", Amount: 0},
	}))

	all, err = s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(all[0].SettledAmount)
	s.InDelta(10.0, *all[0].SettledAmount, 1e-9)
	s.Require().NotNil(all[1].SettledAmount)
	s.Zero(*all[1].SettledAmount)
}

func (s *PledgeStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Create(s.ctx, domain.Pledge{ID: "p1"}))
	s.Require().NoError(s.store.Delete(s.ctx, "p1"))
	s.Require().ErrorIs(s.store.Delete(s.ctx, "p1"), domain.ErrNotFound)
}
