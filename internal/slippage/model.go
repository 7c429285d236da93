// Package slippage implements a rolling-window slippage predictor: the
// requested quantile of recent single-step returns, scaled by the square
// root of order size relative to average traded volume.
//
// This is a forecasting heuristic, not a fitted statistical model. The
// quantile step is a quantile of historical returns, nothing is regressed.
package slippage

import (
	"math"
	"sync"

	"github.com/okquant/costsim/internal/domain"
)

// maxSamples bounds the rolling history. Eviction is strictly
// insertion-order FIFO, independent of the sample timestamps.
const maxSamples = 1000

// DefaultQuantile is the confidence level used by callers that do not pick
// their own.
const DefaultQuantile = 0.95

// Sample is one (price, volume, timestamp) observation from the feed.
type Sample struct {
	Price  float64
	Volume float64
	Time   float64 // seconds since epoch, as delivered by the feed
}

// Model holds the bounded sample history. All methods are safe for
// concurrent use; a single mutex serializes access to the history. Predict
// takes no quantile state: the confidence level is a pure parameter.
type Model struct {
	mu      sync.Mutex
	history []Sample
}

// NewModel returns an empty Model.
func NewModel() *Model {
	return &Model{history: make([]Sample, 0, maxSamples)}
}

// Initialize replaces the entire history from parallel series. It returns
// domain.ErrLengthMismatch, leaving existing state untouched, when the
// series lengths differ. Series longer than the capacity keep only the most
// recent samples.
func (m *Model) Initialize(prices, volumes, timestamps []float64) error {
	if len(prices) != len(volumes) || len(prices) != len(timestamps) {
		return domain.ErrLengthMismatch
	}

	samples := make([]Sample, 0, len(prices))
	for i := range prices {
		samples = append(samples, Sample{Price: prices[i], Volume: volumes[i], Time: timestamps[i]})
	}
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}

	m.mu.Lock()
	m.history = samples
	m.mu.Unlock()
	return nil
}

// Observe appends one sample. Malformed ticks (price <= 0 or volume < 0)
// are dropped silently: a streaming feed must never halt on one bad tick.
// Once over capacity the oldest samples are evicted first.
func (m *Model) Observe(price, volume, ts float64) {
	if price <= 0 || volume < 0 {
		return
	}

	m.mu.Lock()
	m.history = append(m.history, Sample{Price: price, Volume: volume, Time: ts})
	if n := len(m.history); n > maxSamples {
		m.history = m.history[n-maxSamples:]
	}
	m.mu.Unlock()
}

// Len returns the number of retained samples.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Export returns the history as parallel series, oldest first, for
// persistence. The returned slices are copies.
func (m *Model) Export() (prices, volumes, timestamps []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prices = make([]float64, len(m.history))
	volumes = make([]float64, len(m.history))
	timestamps = make([]float64, len(m.history))
	for i, s := range m.history {
		prices[i] = s.Price
		volumes[i] = s.Volume
		timestamps[i] = s.Time
	}
	return prices, volumes, timestamps
}

// Predict estimates slippage for an order of the given size at the given
// confidence quantile:
//
//	slippage = currentPrice * quantile(returns, q) * sqrt(|size| / avgVolume)
//
// where returns are the single-step relative price changes over the history
// and avgVolume is the mean of the positive historical volumes. Every
// insufficient-data branch (empty history, non-positive current price, no
// usable volumes, no computable returns) yields 0 rather than an error:
// a cold start is a normal steady state, not an anomaly.
func (m *Model) Predict(orderSize, currentPrice, q float64) float64 {
	if currentPrice <= 0 {
		return 0
	}

	m.mu.Lock()
	history := make([]Sample, len(m.history))
	copy(history, m.history)
	m.mu.Unlock()

	if len(history) == 0 {
		return 0
	}

	var volSum float64
	var volCount int
	for _, s := range history {
		if s.Volume > 0 {
			volSum += s.Volume
			volCount++
		}
	}
	if volCount == 0 {
		return 0
	}
	avgVolume := volSum / float64(volCount)
	if avgVolume <= 0 {
		return 0
	}
	sizeRatio := math.Abs(orderSize) / avgVolume

	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		if history[i-1].Price > 0 {
			returns = append(returns, (history[i].Price-history[i-1].Price)/history[i-1].Price)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	return currentPrice * quantile(returns, q) * math.Sqrt(sizeRatio)
}
