package domain

// Participant roles. Only administrators may trigger settlement or invoice
// dispatch.
const (
	RoleRunner = "runner"
	RoleAdmin  = "admin"
)

// Participant is a registered lap-runner. LapCount and OwedTotal are derived
// aggregates: they are recomputed from the participant's pledges and laps and
// merge-written by the aggregate service, never edited by hand.
type Participant struct {
	ID        string
	Name      string
	Role      string
	LapCount  int
	OwedTotal float64
}

// IsAdmin reports whether the participant may perform administrator actions.
func (p Participant) IsAdmin() bool {
	return p.Role == RoleAdmin
}
