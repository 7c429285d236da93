package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okquant/costsim/internal/domain"
)

// EstimateStore implements domain.EstimateStore on PostgreSQL.
type EstimateStore struct {
	client *Client
}

// NewEstimateStore creates an EstimateStore backed by the given Client.
func NewEstimateStore(c *Client) *EstimateStore {
	return &EstimateStore{client: c}
}

const estimateColumns = `
	id, exchange, symbol, order_size, limit_price, order_type, horizon_sec,
	spread, mid_price, imbalance, expected_slippage, expected_impact,
	expected_fees, net_cost, maker_probability, slippage_confidence,
	impact_confidence, internal_latency_ns, created_at`

// Insert stores one estimate record.
func (s *EstimateStore) Insert(ctx context.Context, rec domain.EstimateRecord) error {
	_, err := s.client.Pool().Exec(ctx, `
		INSERT INTO estimates (`+estimateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19)`,
		rec.ID, rec.Exchange, rec.Symbol,
		rec.OrderSize, rec.LimitPrice, rec.OrderType, rec.Horizon,
		rec.Metrics.Spread, rec.Metrics.MidPrice, rec.Metrics.Imbalance,
		rec.Metrics.ExpectedSlippage, rec.Metrics.ExpectedImpact,
		rec.Metrics.ExpectedFees, rec.Metrics.NetCost,
		rec.Metrics.MakerProbability, rec.Metrics.SlippageConfidence,
		rec.Metrics.ImpactConfidence, rec.Metrics.InternalLatency.Nanoseconds(),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert estimate %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (s *EstimateStore) ListRecent(ctx context.Context, limit int) ([]domain.EstimateRecord, error) {
	rows, err := s.client.Pool().Query(ctx, `
		SELECT `+estimateColumns+`
		FROM estimates
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent estimates: %w", err)
	}
	defer rows.Close()

	return scanEstimates(rows)
}

// ListBefore returns records created strictly before the cutoff, oldest
// first, for archival.
func (s *EstimateStore) ListBefore(ctx context.Context, before time.Time) ([]domain.EstimateRecord, error) {
	rows, err := s.client.Pool().Query(ctx, `
		SELECT `+estimateColumns+`
		FROM estimates
		WHERE created_at < $1
		ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list estimates before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanEstimates(rows)
}

func scanEstimates(rows pgx.Rows) ([]domain.EstimateRecord, error) {
	var out []domain.EstimateRecord
	for rows.Next() {
		var rec domain.EstimateRecord
		var latencyNs int64
		if err := rows.Scan(
			&rec.ID, &rec.Exchange, &rec.Symbol,
			&rec.OrderSize, &rec.LimitPrice, &rec.OrderType, &rec.Horizon,
			&rec.Metrics.Spread, &rec.Metrics.MidPrice, &rec.Metrics.Imbalance,
			&rec.Metrics.ExpectedSlippage, &rec.Metrics.ExpectedImpact,
			&rec.Metrics.ExpectedFees, &rec.Metrics.NetCost,
			&rec.Metrics.MakerProbability, &rec.Metrics.SlippageConfidence,
			&rec.Metrics.ImpactConfidence, &latencyNs,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan estimate: %w", err)
		}
		rec.Metrics.InternalLatency = time.Duration(latencyNs)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate estimates: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.EstimateStore = (*EstimateStore)(nil)
