package domain

import (
	"context"
	"time"
)

// ModelState is the serializable state of the slippage predictor plus the
// simulator ledger, used by the save/load extension points. The layout is
// versioned so it can evolve without silently misreading old snapshots.
type ModelState struct {
	Version        int
	Exchange       string
	Symbol         string
	Prices         []float64
	Volumes        []float64
	Timestamps     []float64
	InitialCapital float64
	Capital        float64
	Position       float64
	SavedAt        time.Time
}

// ModelStateVersion is the current ModelState layout version.
const ModelStateVersion = 1

// ModelStateCache stores predictor/ledger state so a restarted process can
// resume with a warm history instead of a cold start.
type ModelStateCache interface {
	SaveModelState(ctx context.Context, state ModelState) error
	// LoadModelState returns ErrNotFound when no state has been saved for
	// the (exchange, symbol) pair.
	LoadModelState(ctx context.Context, exchange, symbol string) (ModelState, error)
}

// MetricsCache stores the latest estimate per (exchange, symbol) for the
// HTTP status surface.
type MetricsCache interface {
	SetLatest(ctx context.Context, rec EstimateRecord) error
	GetLatest(ctx context.Context, exchange, symbol string) (EstimateRecord, error)
}
