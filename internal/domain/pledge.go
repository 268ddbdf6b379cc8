package domain

// PledgeKind distinguishes fixed-amount pledges from per-lap pledges.
type PledgeKind string

const (
	PledgeFixed  PledgeKind = "fixed"
	PledgePerLap PledgeKind = "perLap"
)

// Pledge is a sponsor's commitment to pay either a fixed amount or an amount
// per completed lap, tied to one runner. SettledAmount is nil until a
// settlement pass freezes it; a later pass may overwrite it, but within one
// pass all pledges are updated in a single atomic batch.
type Pledge struct {
	ID            string
	RunnerID      string
	SponsorID     string
	SponsorEmail  string
	SponsorName   string
	Kind          PledgeKind
	Amount        float64
	SettledAmount *float64
}

// Settled reports whether a settlement pass has frozen this pledge's amount.
func (p Pledge) Settled() bool {
	return p.SettledAmount != nil
}

// SettledAmountValue computes the frozen amount for the pledge given the
// runner's lap count at settlement time. Unknown kinds settle to 0.
func (p Pledge) SettledAmountValue(lapCount int) float64 {
	switch p.Kind {
	case PledgeFixed:
		return p.Amount
	case PledgePerLap:
		return p.Amount * float64(lapCount)
	default:
		return 0
	}
}

// SettledPledge is one staged settlement write: the pledge and its frozen
// amount. A slice of these is committed as a single all-or-nothing batch.
type SettledPledge struct {
	PledgeID string
	Amount   float64
}
