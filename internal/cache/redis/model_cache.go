package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okquant/costsim/internal/domain"
)

// ModelCache implements domain.ModelStateCache using one JSON value per
// (exchange, symbol) pair.
//
// Key schema:
//
//	model:{exchange}:{symbol}:v{version} - JSON-encoded domain.ModelState
//
// The version is part of the key, so a layout change can never misread a
// snapshot written by an older build; old keys simply go unread.
type ModelCache struct {
	rdb *redis.Client
}

// NewModelCache creates a ModelCache backed by the given Client.
func NewModelCache(c *Client) *ModelCache {
	return &ModelCache{rdb: c.Underlying()}
}

func modelKey(exchange, symbol string, version int) string {
	return fmt.Sprintf("model:%s:%s:v%d", exchange, symbol, version)
}

// SaveModelState serializes and stores the state, overwriting any previous
// snapshot for the same pair and layout version.
func (mc *ModelCache) SaveModelState(ctx context.Context, state domain.ModelState) error {
	if state.Version == 0 {
		state.Version = domain.ModelStateVersion
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: marshal model state: %w", err)
	}

	key := modelKey(state.Exchange, state.Symbol, state.Version)
	if err := mc.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: save model state %s: %w", key, err)
	}
	return nil
}

// LoadModelState fetches and decodes the snapshot for the current layout
// version. It returns domain.ErrNotFound when no snapshot exists.
func (mc *ModelCache) LoadModelState(ctx context.Context, exchange, symbol string) (domain.ModelState, error) {
	key := modelKey(exchange, symbol, domain.ModelStateVersion)

	data, err := mc.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.ModelState{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ModelState{}, fmt.Errorf("redis: load model state %s: %w", key, err)
	}

	var state domain.ModelState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.ModelState{}, fmt.Errorf("redis: decode model state %s: %w", key, err)
	}
	return state, nil
}

// Compile-time interface check.
var _ domain.ModelStateCache = (*ModelCache)(nil)
