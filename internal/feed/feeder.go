// Package feed glues the market data source to the core: each raw depth
// message becomes a book update, a predictor observation, and a fresh cost
// estimate fanned out to the configured sinks.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okquant/costsim/internal/domain"
	"github.com/okquant/costsim/internal/orderbook"
	"github.com/okquant/costsim/internal/platform/okx"
	"github.com/okquant/costsim/internal/simulator"
)

// snapshotDepth is how many levels per side each estimate snapshot carries.
// It must cover the imbalance window used by the engine.
const snapshotDepth = 10

// ProbeOrder is the hypothetical order re-estimated on every book update.
type ProbeOrder struct {
	Size       float64
	LimitPrice float64
	OrderType  string
	Horizon    float64 // seconds
}

// EstimateSink receives every computed estimate record. Sinks are called
// sequentially from the feed goroutine and should be fast or hand off.
type EstimateSink func(ctx context.Context, rec domain.EstimateRecord)

// BookFeeder owns the connection loop: it subscribes to the depth stream,
// applies updates to the book, feeds the predictor, and publishes a new
// estimate for the probe order after every applied update.
type BookFeeder struct {
	wsURL  string
	book   *orderbook.Book
	engine *simulator.Engine
	probe  ProbeOrder
	sinks  []EstimateSink
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewBookFeeder creates a feeder for the given stream URL.
func NewBookFeeder(wsURL string, book *orderbook.Book, engine *simulator.Engine, probe ProbeOrder, logger *slog.Logger) *BookFeeder {
	return &BookFeeder{
		wsURL:  wsURL,
		book:   book,
		engine: engine,
		probe:  probe,
		logger: logger.With(slog.String("component", "book_feeder")),
		done:   make(chan struct{}),
	}
}

// AddSink registers an estimate sink. Not safe to call after Run starts.
func (f *BookFeeder) AddSink(s EstimateSink) {
	f.sinks = append(f.sinks, s)
}

// Run connects and processes updates until ctx is cancelled or Close is
// called. Initial connection failures retry with a flat delay; once
// connected, the client reconnects itself with backoff.
func (f *BookFeeder) Run(ctx context.Context) error {
	client := okx.NewWSClient(f.wsURL, f.logger)
	defer client.Close()

	client.OnBook(func(raw domain.RawBookUpdate) {
		f.handleUpdate(ctx, raw)
	})
	client.OnConnect(func() {
		f.logger.Info("depth stream connected", slog.String("url", f.wsURL))
	})

	for {
		err := client.Connect(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrWSDisconnect) {
			return err
		}
		f.logger.Warn("depth stream connect failed, retrying",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// Close stops the feeder.
func (f *BookFeeder) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// handleUpdate applies one raw message. A malformed update is logged and
// dropped in full; the book keeps its previous state and no estimate is
// produced from the rejected message.
func (f *BookFeeder) handleUpdate(ctx context.Context, raw domain.RawBookUpdate) {
	if err := f.book.Update(raw.Timestamp, raw.Asks, raw.Bids); err != nil {
		f.logger.Warn("rejected book update",
			slog.String("timestamp", raw.Timestamp),
			slog.String("error", err.Error()),
		)
		return
	}

	snap := f.book.Snapshot(snapshotDepth)
	f.engine.ObserveBook(snap)

	metrics := f.engine.Estimate(f.probe.Size, f.probe.LimitPrice, f.probe.OrderType, snap, f.probe.Horizon)

	rec := domain.EstimateRecord{
		ID:         uuid.NewString(),
		Exchange:   snap.Exchange,
		Symbol:     snap.Symbol,
		OrderSize:  f.probe.Size,
		LimitPrice: f.probe.LimitPrice,
		OrderType:  f.probe.OrderType,
		Horizon:    f.probe.Horizon,
		Metrics:    metrics,
		CreatedAt:  time.Now().UTC(),
	}

	for _, sink := range f.sinks {
		sink(ctx, rec)
	}
}
