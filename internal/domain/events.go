package domain

// EventChannel is the pub/sub channel carrying record lifecycle events.
const EventChannel = "record-events"

// Record lifecycle event types. Pledge deletion intentionally has no event:
// the original trigger set never recomputed aggregates on pledge removal, and
// that staleness window is reproduced rather than silently fixed. The next
// lap or pledge event for the same runner heals the aggregate.
const (
	EventPledgeCreated       = "pledge.created"
	EventLapCreated          = "lap.created"
	EventLapDeleted          = "lap.deleted"
	EventSettlementRequested = "settlement.requested"
)

// RecordEvent is the payload published on EventChannel. RunnerID is set for
// pledge/lap events; JobID is set for settlement requests. Delivery is
// at-least-once and unordered, so consumers must tolerate duplicates.
type RecordEvent struct {
	Type     string `json:"type"`
	RunnerID string `json:"runner_id,omitempty"`
	JobID    string `json:"job_id,omitempty"`
}
