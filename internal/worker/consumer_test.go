package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// chanBus feeds subscribers from an in-process channel.
type chanBus struct {
	ch chan []byte
}

func newChanBus() *chanBus {
	return &chanBus{ch: make(chan []byte, 16)}
}

func (b *chanBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.ch <- payload
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return b.ch, nil
}

type recordingRecomputer struct {
	mu      sync.Mutex
	runners []string
}

func (r *recordingRecomputer) Recompute(_ context.Context, runnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners = append(r.runners, runnerID)
	return nil
}

func (r *recordingRecomputer) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.runners))
	copy(out, r.runners)
	return out
}

type recordingJobRunner struct {
	mu   sync.Mutex
	jobs []string
}

func (r *recordingJobRunner) RunJob(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, jobID)
	return nil
}

func (r *recordingJobRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.jobs))
	copy(out, r.jobs)
	return out
}

type ConsumerSuite struct {
	suite.Suite
	bus        *chanBus
	aggregates *recordingRecomputer
	settlement *recordingJobRunner
	consumer   *Consumer
	cancel     context.CancelFunc
	done       chan struct{}
}

func (s *ConsumerSuite) SetupTest() {
	s.bus = newChanBus()
	s.aggregates = &recordingRecomputer{}
	s.settlement = &recordingJobRunner{}
	s.consumer = NewConsumer(s.bus, s.aggregates, s.settlement, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = s.consumer.Run(ctx)
	}()
}

func (s *ConsumerSuite) TearDownTest() {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(time.Second):
		s.Fail("consumer did not stop")
	}
}

func TestConsumerSuite(t *testing.T) {
	suite.Run(t, new(ConsumerSuite))
}

func (s *ConsumerSuite) publish(event domain.RecordEvent) {
	payload, err := json.Marshal(event)
	s.Require().NoError(err)
	s.Require().NoError(s.bus.Publish(context.Background(), domain.EventChannel, payload))
}

// waitFor polls cond until it is true or the deadline passes.
func (s *ConsumerSuite) waitFor(cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Fail("condition not reached in time")
}

func (s *ConsumerSuite) TestDispatchesRecordEvents() {
	s.publish(domain.RecordEvent{Type: domain.EventPledgeCreated, RunnerID: "r1"})
	s.publish(domain.RecordEvent{Type: domain.EventLapCreated, RunnerID: "r2"})
	s.publish(domain.RecordEvent{Type: domain.EventLapDeleted, RunnerID: "r1"})

	s.waitFor(func() bool { return len(s.aggregates.seen()) == 3 })
	s.Equal([]string{"r1", "r2", "r1"}, s.aggregates.seen())
	s.Empty(s.settlement.seen())
}

func (s *ConsumerSuite) TestDispatchesSettlementRequests() {
	s.publish(domain.RecordEvent{Type: domain.EventSettlementRequested, JobID: "job-1"})

	s.waitFor(func() bool { return len(s.settlement.seen()) == 1 })
	s.Equal([]string{"job-1"}, s.settlement.seen())
	s.Empty(s.aggregates.seen())
}

func (s *ConsumerSuite) TestDropsBadEvents() {
	s.Require().NoError(s.bus.Publish(context.Background(), domain.EventChannel, []byte("not json")))
	s.publish(domain.RecordEvent{Type: "unknown.event", RunnerID: "r1"})
	s.publish(domain.RecordEvent{Type: domain.EventPledgeCreated})
	s.publish(domain.RecordEvent{Type: domain.EventSettlementRequested})

	// A good event after the bad ones proves they were skipped, not fatal.
	s.publish(domain.RecordEvent{Type: domain.EventLapCreated, RunnerID: "r9"})

	s.waitFor(func() bool { return len(s.aggregates.seen()) == 1 })
	s.Equal([]string{"r9"}, s.aggregates.seen())
	s.Empty(s.settlement.seen())
}
