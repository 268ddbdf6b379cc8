package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// fakeBus records published payloads and feeds subscribers from a channel.
type fakeBus struct {
	mu         sync.Mutex
	published  []domain.RecordEvent
	publishErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{}
}

func (b *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	var event domain.RecordEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (b *fakeBus) events() []domain.RecordEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.RecordEvent, len(b.published))
	copy(out, b.published)
	return out
}

// fakeLock hands out locks unless held is set.
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (l *fakeLock) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.acquired++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
	}, nil
}

// fakeCache is a map-backed aggregate cache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][2]float64
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][2]float64)}
}

func (c *fakeCache) Set(_ context.Context, runnerID string, lapCount int, owedTotal float64) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[runnerID] = [2]float64{float64(lapCount), owedTotal}
	return nil
}

func (c *fakeCache) Get(_ context.Context, runnerID string) (int, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[runnerID]
	if !ok {
		return 0, 0, domain.ErrNotFound
	}
	return int(entry[0]), entry[1], nil
}

func (c *fakeCache) Invalidate(_ context.Context, runnerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, runnerID)
	return nil
}

// fakeNotifier records every alert that passed the service's filter.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) notified() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	copy(out, n.events)
	return out
}

// failingPledgeStore wraps a pledge store and fails SettleBatch.
type failingPledgeStore struct {
	domain.PledgeStore
	batchErr error
}

func (s *failingPledgeStore) SettleBatch(ctx context.Context, settled []domain.SettledPledge) error {
	if s.batchErr != nil {
		return s.batchErr
	}
	return s.PledgeStore.SettleBatch(ctx, settled)
}

// fakeArchiver records archived dispatch summaries.
type fakeArchiver struct {
	mu        sync.Mutex
	summaries [][]byte
}

func (a *fakeArchiver) ArchiveDispatchRun(_ context.Context, _ time.Time, summary []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries = append(a.summaries, summary)
	return nil
}
