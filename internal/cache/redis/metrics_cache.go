package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okquant/costsim/internal/domain"
)

// MetricsCache implements domain.MetricsCache, keeping the most recent
// estimate per (exchange, symbol) for the HTTP status surface.
//
// Key schema:
//
//	estimate:{exchange}:{symbol}:latest - JSON-encoded domain.EstimateRecord
type MetricsCache struct {
	rdb *redis.Client
}

// NewMetricsCache creates a MetricsCache backed by the given Client.
func NewMetricsCache(c *Client) *MetricsCache {
	return &MetricsCache{rdb: c.Underlying()}
}

func latestKey(exchange, symbol string) string {
	return fmt.Sprintf("estimate:%s:%s:latest", exchange, symbol)
}

// SetLatest overwrites the latest estimate for the record's pair.
func (mc *MetricsCache) SetLatest(ctx context.Context, rec domain.EstimateRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal estimate: %w", err)
	}

	key := latestKey(rec.Exchange, rec.Symbol)
	if err := mc.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set latest estimate %s: %w", key, err)
	}
	return nil
}

// GetLatest returns the most recent estimate, or domain.ErrNotFound when
// none has been stored yet.
func (mc *MetricsCache) GetLatest(ctx context.Context, exchange, symbol string) (domain.EstimateRecord, error) {
	key := latestKey(exchange, symbol)

	data, err := mc.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.EstimateRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.EstimateRecord{}, fmt.Errorf("redis: get latest estimate %s: %w", key, err)
	}

	var rec domain.EstimateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.EstimateRecord{}, fmt.Errorf("redis: decode latest estimate %s: %w", key, err)
	}
	return rec, nil
}

// Compile-time interface check.
var _ domain.MetricsCache = (*MetricsCache)(nil)
