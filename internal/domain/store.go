package domain

import (
	"context"
	"time"
)

// EstimateStore persists computed estimate records.
type EstimateStore interface {
	Insert(ctx context.Context, rec EstimateRecord) error
	ListRecent(ctx context.Context, limit int) ([]EstimateRecord, error)
	// ListBefore returns records created strictly before the cutoff time,
	// oldest first, for archival.
	ListBefore(ctx context.Context, before time.Time) ([]EstimateRecord, error)
}

// SimTradeStore persists simulated trade executions.
type SimTradeStore interface {
	Insert(ctx context.Context, res TradeResult) error
	ListRecent(ctx context.Context, limit int) ([]TradeResult, error)
}
