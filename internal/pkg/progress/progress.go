// Package progress is an ephemeral per-campaign progress cache on Redis.
// Keys expire automatically; the cache is advisory, never authoritative,
// and safe to lose.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Progress is the polling payload for a long-running batched operation.
type Progress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Percent   int `json:"percent"`
}

// New builds a Progress with the percent derived from the counts.
func New(total, processed int) Progress {
	p := Progress{Total: total, Processed: processed}
	if total > 0 {
		p.Percent = processed * 100 / total
	}
	return p
}

// Cache stores Progress values under TTL'd keys.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a cache whose keys expire after ttl.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func key(campaignID string) string {
	return "campaign:edit-progress:" + campaignID
}

// Set writes the current progress, refreshing the key's TTL.
func (c *Cache) Set(ctx context.Context, campaignID string, p Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := c.client.Set(ctx, key(campaignID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// Get reads the current progress. The second return is false when no
// progress is recorded (never started, or the key expired).
func (c *Cache) Get(ctx context.Context, campaignID string) (Progress, bool, error) {
	data, err := c.client.Get(ctx, key(campaignID)).Bytes()
	if err == redis.Nil {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("get progress: %w", err)
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, false, fmt.Errorf("decode progress: %w", err)
	}
	return p, true, nil
}
