package simulator

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okquant/costsim/internal/domain"
	"github.com/okquant/costsim/internal/slippage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(dailyVolume float64) *Engine {
	return NewEngine("OKX", "BTC-USDT", 100_000,
		slippage.NewModel(),
		NewTieredFees("OKX", "tier1"),
		NewSquareRootImpact(0.02, dailyVolume, 0.1, 0.1),
		testLogger(),
	)
}

func testSnapshot() domain.BookSnapshot {
	return domain.BookSnapshot{
		Exchange: "OKX",
		Symbol:   "BTC-USDT",
		Bids: []domain.PriceLevel{
			{Price: 100, Quantity: 2},
			{Price: 99.5, Quantity: 3},
		},
		Asks: []domain.PriceLevel{
			{Price: 100.5, Quantity: 1.5},
			{Price: 101, Quantity: 2},
		},
		BidVolume: 5,
		AskVolume: 3.5,
		UpdatedAt: time.Unix(1_700_000_000, 0),
	}
}

func TestEstimateBasicMetrics(t *testing.T) {
	e := newTestEngine(1_000_000)
	m := e.Estimate(10, 100.25, "market", testSnapshot(), 60)

	assert.Equal(t, 100.25, m.MidPrice)
	assert.InDelta(t, 0.5, m.Spread, 1e-12)
	assert.InDelta(t, (5.0-3.5)/8.5, m.Imbalance, 1e-12)
	assert.Equal(t, 0.95, m.SlippageConfidence)
	assert.Equal(t, 0.90, m.ImpactConfidence)

	// Cold predictor: slippage 0.
	assert.Equal(t, 0.0, m.ExpectedSlippage)

	// Limit at mid with a positive spread: neutral probability, taker fee.
	assert.Equal(t, 0.5, m.MakerProbability)
	assert.InDelta(t, 10*100.25*0.001, m.ExpectedFees, 1e-12)

	wantImpact := 0.1*math.Sqrt(10.0/1_000_000)*100.25 + 0.1*(10.0/1_000_000)*100.25
	assert.InDelta(t, wantImpact, m.ExpectedImpact, 1e-12)
	assert.InDelta(t, m.ExpectedSlippage+m.ExpectedFees+m.ExpectedImpact, m.NetCost, 1e-12)
	assert.GreaterOrEqual(t, int64(m.InternalLatency), int64(0))
}

func TestEstimateEmptyBookNeutralBundle(t *testing.T) {
	e := newTestEngine(1_000_000)

	for _, snap := range []domain.BookSnapshot{
		{},
		{Bids: []domain.PriceLevel{{Price: 100, Quantity: 1}}},
		{Asks: []domain.PriceLevel{{Price: 101, Quantity: 1}}},
	} {
		m := e.Estimate(10, 100, "market", snap, 60)
		assert.Equal(t, domain.TradeMetrics{MakerProbability: 0.5}, m)
	}
}

func TestMakerTakerProbability(t *testing.T) {
	// Zero spread carries no information.
	assert.Equal(t, 0.5, makerTakerProbability(100, 100, 0))

	// At mid: neutral.
	assert.Equal(t, 0.5, makerTakerProbability(100.25, 100.25, 0.5))

	// One half-spread above mid: logistic(1).
	assert.InDelta(t, 1/(1+math.Exp(-1)), makerTakerProbability(100.5, 100.25, 0.5), 1e-12)

	// Below mid: mirrored.
	above := makerTakerProbability(100.5, 100.25, 0.5)
	below := makerTakerProbability(100.0, 100.25, 0.5)
	assert.InDelta(t, 1.0, above+below, 1e-12)
	assert.Greater(t, above, 0.5)
	assert.Less(t, below, 0.5)
}

func TestEstimateMakerFeeWhenLikelyMaker(t *testing.T) {
	e := newTestEngine(1_000_000)
	m := e.Estimate(10, 100.5, "limit", testSnapshot(), 60)

	assert.Greater(t, m.MakerProbability, 0.5)
	assert.InDelta(t, 10*100.25*0.0008, m.ExpectedFees, 1e-12)
}

func TestObserveBookFeedsPredictor(t *testing.T) {
	predictor := slippage.NewModel()
	e := NewEngine("OKX", "BTC-USDT", 100_000, predictor,
		NewTieredFees("OKX", "tier1"),
		NewSquareRootImpact(0.02, 1_000_000, 0.1, 0.1),
		testLogger(),
	)

	e.ObserveBook(testSnapshot())
	assert.Equal(t, 1, predictor.Len())

	// Snapshot without a bid side is skipped.
	e.ObserveBook(domain.BookSnapshot{Asks: []domain.PriceLevel{{Price: 101, Quantity: 1}}})
	assert.Equal(t, 1, predictor.Len())
}

func TestExecuteBuyLedger(t *testing.T) {
	e := newTestEngine(0) // zero daily volume: impact 0

	res := e.Execute(10, 100, "limit", 60)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 0.0, res.Slippage)
	assert.Equal(t, 0.0, res.MarketImpact)
	assert.Equal(t, 100.0, res.ExecutedPrice)
	assert.Equal(t, 10.0, res.ExecutedSize)

	// Limit order rests: maker fee.
	assert.InDelta(t, 10*100*0.0008, res.Fees, 1e-12)
	assert.InDelta(t, 1000+res.Fees, res.TotalCost, 1e-12)

	assert.InDelta(t, 100_000-res.TotalCost, e.Capital(), 1e-9)
	assert.Equal(t, 10.0, e.Position())
	assert.InDelta(t, -res.TotalCost, e.PnL(), 1e-9)
}

func TestExecuteSellLedger(t *testing.T) {
	e := newTestEngine(0)

	res := e.Execute(-10, 100, "market", 60)

	// Market order takes: taker fee on absolute notional.
	assert.InDelta(t, 10*100*0.001, res.Fees, 1e-12)
	assert.InDelta(t, -1000+res.Fees, res.TotalCost, 1e-12)

	// Negative total cost credits capital; position goes short.
	assert.InDelta(t, 100_000+1000-res.Fees, e.Capital(), 1e-9)
	assert.Equal(t, -10.0, e.Position())
}

func TestExecuteRoundTripPaysFeesTwice(t *testing.T) {
	e := newTestEngine(0)

	buy := e.Execute(10, 100, "market", 60)
	sell := e.Execute(-10, 100, "market", 60)

	assert.Equal(t, 0.0, e.Position())
	assert.InDelta(t, -(buy.Fees + sell.Fees), e.PnL(), 1e-9)
}

// memoryModelCache is an in-memory domain.ModelStateCache for tests.
type memoryModelCache struct {
	states map[string]domain.ModelState
}

func newMemoryModelCache() *memoryModelCache {
	return &memoryModelCache{states: make(map[string]domain.ModelState)}
}

func (c *memoryModelCache) SaveModelState(_ context.Context, state domain.ModelState) error {
	c.states[state.Exchange+"/"+state.Symbol] = state
	return nil
}

func (c *memoryModelCache) LoadModelState(_ context.Context, exchange, symbol string) (domain.ModelState, error) {
	state, ok := c.states[exchange+"/"+symbol]
	if !ok {
		return domain.ModelState{}, domain.ErrNotFound
	}
	return state, nil
}

func TestSaveAndLoadState(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryModelCache()

	e := newTestEngine(0)
	e.ObserveBook(testSnapshot())
	e.Execute(10, 100, "market", 60)

	require.NoError(t, e.SaveState(ctx, cache))

	restored := newTestEngine(0)
	require.NoError(t, restored.LoadState(ctx, cache))

	assert.Equal(t, e.Capital(), restored.Capital())
	assert.Equal(t, e.Position(), restored.Position())
	assert.Equal(t, e.PnL(), restored.PnL())
}

func TestLoadStateMissingIsNotFound(t *testing.T) {
	e := newTestEngine(0)
	err := e.LoadState(context.Background(), newMemoryModelCache())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
