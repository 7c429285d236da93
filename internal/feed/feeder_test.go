package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okquant/costsim/internal/domain"
	"github.com/okquant/costsim/internal/orderbook"
	"github.com/okquant/costsim/internal/simulator"
	"github.com/okquant/costsim/internal/slippage"
)

func newTestFeeder(t *testing.T) (*BookFeeder, *orderbook.Book, *[]domain.EstimateRecord) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	book := orderbook.New("OKX", "BTC-USDT")
	engine := simulator.NewEngine("OKX", "BTC-USDT", 100_000,
		slippage.NewModel(),
		simulator.NewTieredFees("OKX", "tier1"),
		simulator.NewSquareRootImpact(0.02, 1_000_000, 0.1, 0.1),
		logger,
	)

	probe := ProbeOrder{Size: 100, LimitPrice: 0, OrderType: "market", Horizon: 60}
	f := NewBookFeeder("ws://unused", book, engine, probe, logger)

	var records []domain.EstimateRecord
	f.AddSink(func(_ context.Context, rec domain.EstimateRecord) {
		records = append(records, rec)
	})
	return f, book, &records
}

func TestHandleUpdateProducesEstimate(t *testing.T) {
	f, book, records := newTestFeeder(t)

	f.handleUpdate(context.Background(), domain.RawBookUpdate{
		Timestamp: "2025-03-01T14:05:00Z",
		Asks:      [][2]string{{"100.5", "1.5"}, {"101", "2"}},
		Bids:      [][2]string{{"100", "2"}, {"99.5", "3"}},
	})

	require.Len(t, *records, 1)
	rec := (*records)[0]

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "OKX", rec.Exchange)
	assert.Equal(t, "BTC-USDT", rec.Symbol)
	assert.Equal(t, 100.0, rec.OrderSize)
	assert.Equal(t, "market", rec.OrderType)
	assert.Equal(t, 100.25, rec.Metrics.MidPrice)
	assert.InDelta(t, 0.5, rec.Metrics.Spread, 1e-12)
	assert.False(t, rec.CreatedAt.IsZero())

	// The book was applied before the estimate.
	mid, ok := book.MidPrice()
	require.True(t, ok)
	assert.Equal(t, 100.25, mid)
}

func TestHandleUpdateRejectsMalformedAndKeepsBook(t *testing.T) {
	f, book, records := newTestFeeder(t)

	f.handleUpdate(context.Background(), domain.RawBookUpdate{
		Timestamp: "2025-03-01T14:05:00Z",
		Asks:      [][2]string{{"100.5", "1.5"}},
		Bids:      [][2]string{{"100", "2"}},
	})
	require.Len(t, *records, 1)

	// Malformed update: dropped in full, no estimate, prior book intact.
	f.handleUpdate(context.Background(), domain.RawBookUpdate{
		Timestamp: "2025-03-01T14:05:01Z",
		Asks:      [][2]string{{"garbage", "1"}},
		Bids:      [][2]string{{"100", "2"}},
	})
	require.Len(t, *records, 1)

	mid, ok := book.MidPrice()
	require.True(t, ok)
	assert.Equal(t, 100.25, mid)
}

func TestEachEstimateHasUniqueID(t *testing.T) {
	f, _, records := newTestFeeder(t)

	for i := 0; i < 3; i++ {
		f.handleUpdate(context.Background(), domain.RawBookUpdate{
			Timestamp: "2025-03-01T14:05:00Z",
			Asks:      [][2]string{{"100.5", "1"}},
			Bids:      [][2]string{{"100", "1"}},
		})
	}

	require.Len(t, *records, 3)
	seen := make(map[string]bool)
	for _, rec := range *records {
		assert.False(t, seen[rec.ID])
		seen[rec.ID] = true
	}
}
