package postgres

import (
	"context"
	"fmt"

	"github.com/okquant/costsim/internal/domain"
)

// SimTradeStore implements domain.SimTradeStore on PostgreSQL.
type SimTradeStore struct {
	client *Client
}

// NewSimTradeStore creates a SimTradeStore backed by the given Client.
func NewSimTradeStore(c *Client) *SimTradeStore {
	return &SimTradeStore{client: c}
}

// Insert stores one simulated trade result.
func (s *SimTradeStore) Insert(ctx context.Context, res domain.TradeResult) error {
	_, err := s.client.Pool().Exec(ctx, `
		INSERT INTO sim_trades (
			id, order_size, limit_price, order_type, slippage, market_impact,
			fees, executed_price, executed_size, total_cost, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		res.ID, res.OrderSize, res.LimitPrice, res.OrderType,
		res.Slippage, res.MarketImpact, res.Fees,
		res.ExecutedPrice, res.ExecutedSize, res.TotalCost, res.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert sim trade %s: %w", res.ID, err)
	}
	return nil
}

// ListRecent returns up to limit results, newest first.
func (s *SimTradeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeResult, error) {
	rows, err := s.client.Pool().Query(ctx, `
		SELECT id, order_size, limit_price, order_type, slippage,
		       market_impact, fees, executed_price, executed_size,
		       total_cost, executed_at
		FROM sim_trades
		ORDER BY executed_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent sim trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeResult
	for rows.Next() {
		var res domain.TradeResult
		if err := rows.Scan(
			&res.ID, &res.OrderSize, &res.LimitPrice, &res.OrderType,
			&res.Slippage, &res.MarketImpact, &res.Fees,
			&res.ExecutedPrice, &res.ExecutedSize, &res.TotalCost,
			&res.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan sim trade: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate sim trades: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.SimTradeStore = (*SimTradeStore)(nil)
