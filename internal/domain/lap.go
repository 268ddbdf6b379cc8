package domain

// Lap records one completed circuit for a runner. It carries no payload beyond
// identity; the aggregate service only ever counts laps.
type Lap struct {
	ID       string
	RunnerID string
}
