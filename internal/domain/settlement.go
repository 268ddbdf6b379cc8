package domain

import "time"

// Settlement job states. A job starts pending and ends in exactly one of the
// terminal states; there are no further transitions. A second settlement
// request creates a new job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobSuccess JobStatus = "success"
	JobError   JobStatus = "error"
)

// SettlementJob is the persisted record of one settlement attempt. The worker
// writes the terminal status, settled count, and error message exactly once.
type SettlementJob struct {
	ID           string
	RequestedBy  string
	Status       JobStatus
	SettledCount int
	ErrorMessage string
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// SettlementResult is the outcome of one bulk settlement pass.
type SettlementResult struct {
	SettledCount int
}
