// Package simulator combines the slippage predictor with pluggable fee and
// impact strategies into snapshot-based trade-cost forecasts, and tracks a
// simple capital/position ledger for simulated executions.
package simulator

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okquant/costsim/internal/domain"
	"github.com/okquant/costsim/internal/slippage"
)

const (
	// imbalanceDepth is how many levels per side feed the book imbalance.
	imbalanceDepth = 10

	slippageConfidence = 0.95
	impactConfidence   = 0.90
)

// Engine estimates the execution cost of hypothetical trades against book
// snapshots. Estimate is read-only and safe for any number of concurrent
// callers; Execute mutates the ledger under its own lock. The engine never
// holds the book lock and the predictor lock at the same time.
type Engine struct {
	exchange string
	symbol   string

	predictor *slippage.Model
	fees      FeeStrategy
	impact    ImpactStrategy
	logger    *slog.Logger

	ledgerMu       sync.Mutex
	initialCapital float64
	capital        float64
	position       float64
}

// NewEngine creates an Engine with the given sub-models and starting
// capital.
func NewEngine(exchange, symbol string, initialCapital float64, predictor *slippage.Model, fees FeeStrategy, impact ImpactStrategy, logger *slog.Logger) *Engine {
	return &Engine{
		exchange:       exchange,
		symbol:         symbol,
		predictor:      predictor,
		fees:           fees,
		impact:         impact,
		logger:         logger.With(slog.String("component", "simulator")),
		initialCapital: initialCapital,
		capital:        initialCapital,
	}
}

// ObserveBook feeds the slippage predictor with one sample per applied book
// update: the mid price and the combined resting volume of both sides as a
// volume proxy. Snapshots with an empty side are skipped.
func (e *Engine) ObserveBook(snap domain.BookSnapshot) {
	mid, ok := snap.Mid()
	if !ok {
		return
	}
	e.predictor.Observe(mid, snap.BidVolume+snap.AskVolume, float64(snap.UpdatedAt.Unix()))
}

// Estimate produces the forecast bundle for a hypothetical order against
// one book snapshot. When the snapshot is missing either side it returns
// the neutral bundle (all costs zero, probability 0.5) rather than an
// error: an empty book is the expected steady state during a cold start.
//
// One mid price is computed from the snapshot and fed to every sub-model;
// nothing is re-read from the live book mid-call.
func (e *Engine) Estimate(orderSize, limitPrice float64, orderType string, snap domain.BookSnapshot, horizon float64) domain.TradeMetrics {
	start := time.Now()

	mid, ok := snap.Mid()
	if !ok {
		return domain.TradeMetrics{MakerProbability: 0.5}
	}
	spread, _ := snap.Spread()

	m := domain.TradeMetrics{
		Spread:             spread,
		MidPrice:           mid,
		Imbalance:          bookImbalance(snap),
		SlippageConfidence: slippageConfidence,
		ImpactConfidence:   impactConfidence,
	}

	m.ExpectedSlippage = e.predictor.Predict(orderSize, mid, slippageConfidence)
	m.ExpectedImpact = e.impact.Impact(orderSize, mid, horizon)
	m.MakerProbability = makerTakerProbability(limitPrice, mid, spread)
	m.ExpectedFees = e.fees.Fee(orderSize, mid, m.MakerProbability > 0.5)
	m.NetCost = m.ExpectedSlippage + m.ExpectedFees + m.ExpectedImpact
	m.InternalLatency = time.Since(start)
	return m
}

// bookImbalance is the signed volume skew over the best imbalanceDepth
// levels per side, in [-1, 1]; positive means bid-heavy. An empty top of
// book yields 0.
func bookImbalance(snap domain.BookSnapshot) float64 {
	var bidVol, askVol float64
	for i, lvl := range snap.Bids {
		if i >= imbalanceDepth {
			break
		}
		bidVol += lvl.Quantity
	}
	for i, lvl := range snap.Asks {
		if i >= imbalanceDepth {
			break
		}
		askVol += lvl.Quantity
	}
	total := bidVol + askVol
	if total == 0 {
		return 0
	}
	return (bidVol - askVol) / total
}

// makerTakerProbability is a logistic function of the limit price's
// distance from mid, normalized by half the spread. A zero spread carries
// no information about queue position, so it yields the neutral 0.5.
func makerTakerProbability(limitPrice, mid, spread float64) float64 {
	if spread == 0 {
		return 0.5
	}
	x := (limitPrice - mid) / (spread / 2)
	return 1 / (1 + math.Exp(-x))
}

// Execute simulates filling the order and applies the result to the
// ledger. The executed price is the limit price moved by predicted slippage
// and impact; the order rests (maker) only when orderType is "limit". One
// cash-flow formula covers both directions: capital decreases by totalCost
// and position moves by the signed order size, so a sell (negative size)
// increases capital through its negative notional.
func (e *Engine) Execute(orderSize, limitPrice float64, orderType string, horizon float64) domain.TradeResult {
	res := domain.TradeResult{
		ID:         uuid.NewString(),
		OrderSize:  orderSize,
		LimitPrice: limitPrice,
		OrderType:  orderType,
		ExecutedAt: time.Now().UTC(),
	}

	res.Slippage = e.predictor.Predict(orderSize, limitPrice, slippage.DefaultQuantile)
	res.MarketImpact = e.impact.Impact(orderSize, limitPrice, horizon)
	res.ExecutedPrice = limitPrice + res.Slippage + res.MarketImpact
	res.ExecutedSize = orderSize

	maker := orderType == "limit"
	res.Fees = e.fees.Fee(orderSize, res.ExecutedPrice, maker)
	res.TotalCost = res.ExecutedPrice*res.ExecutedSize + res.Fees

	e.ledgerMu.Lock()
	e.capital -= res.TotalCost
	e.position += orderSize
	e.ledgerMu.Unlock()

	e.logger.Debug("simulated execution",
		slog.String("id", res.ID),
		slog.Float64("size", orderSize),
		slog.Float64("executed_price", res.ExecutedPrice),
		slog.Float64("total_cost", res.TotalCost),
	)
	return res
}

// Capital returns the current simulated capital.
func (e *Engine) Capital() float64 {
	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()
	return e.capital
}

// Position returns the current signed simulated position.
func (e *Engine) Position() float64 {
	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()
	return e.position
}

// PnL returns realized profit and loss: current minus initial capital. The
// open position is not marked to market.
func (e *Engine) PnL() float64 {
	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()
	return e.capital - e.initialCapital
}

// SaveState writes the predictor history and ledger to the model-state
// cache so a restart can resume warm.
func (e *Engine) SaveState(ctx context.Context, cache domain.ModelStateCache) error {
	prices, volumes, timestamps := e.predictor.Export()

	e.ledgerMu.Lock()
	state := domain.ModelState{
		Version:        domain.ModelStateVersion,
		Exchange:       e.exchange,
		Symbol:         e.symbol,
		Prices:         prices,
		Volumes:        volumes,
		Timestamps:     timestamps,
		InitialCapital: e.initialCapital,
		Capital:        e.capital,
		Position:       e.position,
		SavedAt:        time.Now().UTC(),
	}
	e.ledgerMu.Unlock()

	return cache.SaveModelState(ctx, state)
}

// LoadState restores predictor history and ledger from the model-state
// cache. A missing state (domain.ErrNotFound) is passed through for the
// caller to treat as a cold start.
func (e *Engine) LoadState(ctx context.Context, cache domain.ModelStateCache) error {
	state, err := cache.LoadModelState(ctx, e.exchange, e.symbol)
	if err != nil {
		return err
	}
	if err := e.predictor.Initialize(state.Prices, state.Volumes, state.Timestamps); err != nil {
		return err
	}

	e.ledgerMu.Lock()
	e.initialCapital = state.InitialCapital
	e.capital = state.Capital
	e.position = state.Position
	e.ledgerMu.Unlock()

	e.logger.Info("model state restored",
		slog.Int("samples", len(state.Prices)),
		slog.Time("saved_at", state.SavedAt),
	)
	return nil
}
