package domain

import (
	"context"
	"time"
)

// EventBus delivers record lifecycle events to the trigger worker. Semantics
// are at-least-once with no ordering guarantee between events for the same
// runner; consumers recompute from full current state so any interleaving is
// safe.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of payloads that is closed when ctx is
	// cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// LockManager provides distributed locking, used to keep at most one
// settlement pass in flight across processes.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// AggregateCache caches the derived {lapCount, owedTotal} pair per runner for
// fast scoreboard reads. It is best-effort: a cache miss or failure falls back
// to the participant store.
type AggregateCache interface {
	Set(ctx context.Context, runnerID string, lapCount int, owedTotal float64) error
	Get(ctx context.Context, runnerID string) (lapCount int, owedTotal float64, err error)
	Invalidate(ctx context.Context, runnerID string) error
}

// BlobWriter stores audit copies of dispatched invoice runs in object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
