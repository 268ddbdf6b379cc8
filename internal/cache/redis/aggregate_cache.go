package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// aggregateTTL bounds staleness if an invalidation is ever lost.
const aggregateTTL = 10 * time.Minute

// AggregateCache implements domain.AggregateCache using Redis string keys with
// JSON values. Misses surface as domain.ErrNotFound so callers fall back to
// the participant store.
type AggregateCache struct {
	rdb *redis.Client
}

// NewAggregateCache creates an AggregateCache backed by the given Client.
func NewAggregateCache(c *Client) *AggregateCache {
	return &AggregateCache{rdb: c.Underlying()}
}

type aggregateEntry struct {
	LapCount  int     `json:"lap_count"`
	OwedTotal float64 `json:"owed_total"`
}

func aggregateKey(runnerID string) string {
	return "aggregate:" + runnerID
}

// Set stores the derived pair for a runner.
func (c *AggregateCache) Set(ctx context.Context, runnerID string, lapCount int, owedTotal float64) error {
	data, err := json.Marshal(aggregateEntry{LapCount: lapCount, OwedTotal: owedTotal})
	if err != nil {
		return fmt.Errorf("redis: marshal aggregate %s: %w", runnerID, err)
	}
	if err := c.rdb.Set(ctx, aggregateKey(runnerID), data, aggregateTTL).Err(); err != nil {
		return fmt.Errorf("redis: set aggregate %s: %w", runnerID, err)
	}
	return nil
}

// Get returns the cached pair, or domain.ErrNotFound on a miss.
func (c *AggregateCache) Get(ctx context.Context, runnerID string) (int, float64, error) {
	data, err := c.rdb.Get(ctx, aggregateKey(runnerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get aggregate %s: %w", runnerID, err)
	}

	var entry aggregateEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return 0, 0, fmt.Errorf("redis: unmarshal aggregate %s: %w", runnerID, err)
	}
	return entry.LapCount, entry.OwedTotal, nil
}

// Invalidate drops the cached pair for a runner.
func (c *AggregateCache) Invalidate(ctx context.Context, runnerID string) error {
	if err := c.rdb.Del(ctx, aggregateKey(runnerID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate aggregate %s: %w", runnerID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.AggregateCache = (*AggregateCache)(nil)
