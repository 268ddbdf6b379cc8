package invoice

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sponsorenlauf/backend/internal/domain"
)

type RendererSuite struct {
	suite.Suite
	renderer *Renderer
}

func (s *RendererSuite) SetupTest() {
	var err error
	s.renderer, err = NewRenderer(Config{
		Subject:       "Your sponsor contribution",
		Currency:      "CHF",
		EventName:     "Sponsorenlauf",
		AccountHolder: "Sportverein",
		IBAN:          "CH93 0076 2011 6238 5295 7",
		BankName:      "Kantonalbank",
	})
	s.Require().NoError(err)
}

func TestRendererSuite(t *testing.T) {
	suite.Run(t, new(RendererSuite))
}

func (s *RendererSuite) TestRender() {
	html, err := s.renderer.Render(Invoice{
		SponsorName: "Anna",
		Lines: []Line{
			{RunnerName: "Mia", LapCount: 3, Kind: domain.PledgeFixed, UnitAmount: 50, Amount: 50},
			{RunnerName: "Ben", LapCount: 5, Kind: domain.PledgePerLap, UnitAmount: 2, Amount: 10},
		},
		Total: 60,
	})
	s.Require().NoError(err)

	s.Contains(html, "Dear Anna,")
	s.Contains(html, "fixed contribution")
	s.Contains(html, "CHF 2.00 per lap (5 laps run)")
	s.Contains(html, "CHF 50.00")
	s.Contains(html, "CHF 10.00")
	s.Contains(html, "CHF 60.00")
	s.Contains(html, "CH93 0076 2011 6238 5295 7")
	s.Contains(html, "Sportverein")
}

func (s *RendererSuite) TestRenderWithoutSponsorName() {
	html, err := s.renderer.Render(Invoice{
		Lines: []Line{{RunnerName: "Mia", Kind: domain.PledgeFixed, UnitAmount: 5, Amount: 5}},
		Total: 5,
	})
	s.Require().NoError(err)
	s.Contains(html, "Dear sponsor,")
}

func (s *RendererSuite) TestRenderWithoutBankDetails() {
	renderer, err := NewRenderer(Config{
		Subject: "x", Currency: "EUR", EventName: "Lauf",
	})
	s.Require().NoError(err)

	html, err := renderer.Render(Invoice{
		Lines: []Line{{RunnerName: "Mia", Kind: domain.PledgeFixed, UnitAmount: 5, Amount: 5}},
		Total: 5,
	})
	s.Require().NoError(err)
	s.NotContains(html, "IBAN")
	s.Contains(html, "EUR 5.00")
}

func (s *RendererSuite) TestSubject() {
	s.Equal("Your sponsor contribution", s.renderer.Subject())
}
