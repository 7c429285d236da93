package slippage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okquant/costsim/internal/domain"
)

func TestObserveDropsMalformedTicks(t *testing.T) {
	m := NewModel()
	m.Observe(0, 10, 1)
	m.Observe(-5, 10, 2)
	m.Observe(100, -1, 3)
	assert.Equal(t, 0, m.Len())

	m.Observe(100, 0, 4) // zero volume is allowed, only negative is rejected
	m.Observe(101, 10, 5)
	assert.Equal(t, 2, m.Len())
}

func TestHistoryBoundedFIFO(t *testing.T) {
	m := NewModel()
	for i := 0; i < maxSamples+100; i++ {
		m.Observe(float64(i+1), 10, float64(i))
	}
	assert.Equal(t, maxSamples, m.Len())

	// The oldest 100 samples were evicted; the head is sample 101.
	prices, _, _ := m.Export()
	require.Len(t, prices, maxSamples)
	assert.Equal(t, 101.0, prices[0])
	assert.Equal(t, float64(maxSamples+100), prices[len(prices)-1])
}

func TestInitializeLengthMismatch(t *testing.T) {
	m := NewModel()
	m.Observe(100, 10, 1)

	err := m.Initialize([]float64{1, 2}, []float64{1}, []float64{1, 2})
	require.ErrorIs(t, err, domain.ErrLengthMismatch)
	// Existing history untouched on rejection.
	assert.Equal(t, 1, m.Len())
}

func TestInitializeTruncatesToCapacity(t *testing.T) {
	n := maxSamples + 50
	prices := make([]float64, n)
	volumes := make([]float64, n)
	timestamps := make([]float64, n)
	for i := range prices {
		prices[i] = float64(i + 1)
		volumes[i] = 10
		timestamps[i] = float64(i)
	}

	m := NewModel()
	require.NoError(t, m.Initialize(prices, volumes, timestamps))
	assert.Equal(t, maxSamples, m.Len())

	got, _, _ := m.Export()
	assert.Equal(t, 51.0, got[0]) // newest maxSamples kept
}

func TestPredictColdStartIsZero(t *testing.T) {
	m := NewModel()
	assert.Equal(t, 0.0, m.Predict(100, 50_000, 0.95))

	// One sample: no returns computable yet.
	m.Observe(50_000, 10, 1)
	assert.Equal(t, 0.0, m.Predict(100, 50_000, 0.95))
}

func TestPredictGuards(t *testing.T) {
	m := NewModel()
	m.Observe(100, 10, 1)
	m.Observe(101, 10, 2)

	assert.Equal(t, 0.0, m.Predict(100, 0, 0.95))
	assert.Equal(t, 0.0, m.Predict(100, -1, 0.95))

	// All-zero volumes: size ratio undefined.
	z := NewModel()
	z.Observe(100, 0, 1)
	z.Observe(101, 0, 2)
	assert.Equal(t, 0.0, z.Predict(100, 100, 0.95))
}

func TestPredictFormula(t *testing.T) {
	m := NewModel()
	// Returns: +0.01, -0.005 (approximately), avg volume 20.
	m.Observe(100, 20, 1)
	m.Observe(101, 20, 2)
	m.Observe(100.495, 20, 3)

	q := 0.95
	ret1 := (101.0 - 100.0) / 100.0
	ret2 := (100.495 - 101.0) / 101.0
	want := 200.0 * quantile([]float64{ret1, ret2}, q) * math.Sqrt(5.0/20.0)

	assert.InDelta(t, want, m.Predict(5, 200, q), 1e-12)
}

func TestPredictUsesAbsoluteOrderSize(t *testing.T) {
	m := NewModel()
	m.Observe(100, 20, 1)
	m.Observe(101, 20, 2)
	m.Observe(99, 20, 3)

	buy := m.Predict(5, 100, 0.95)
	sell := m.Predict(-5, 100, 0.95)
	assert.Equal(t, buy, sell)
}

func TestExportRoundTrip(t *testing.T) {
	m := NewModel()
	m.Observe(100, 10, 1)
	m.Observe(101, 11, 2)

	prices, volumes, timestamps := m.Export()
	assert.Equal(t, []float64{100, 101}, prices)
	assert.Equal(t, []float64{10, 11}, volumes)
	assert.Equal(t, []float64{1, 2}, timestamps)

	restored := NewModel()
	require.NoError(t, restored.Initialize(prices, volumes, timestamps))
	assert.Equal(t, m.Predict(5, 100, 0.9), restored.Predict(5, 100, 0.9))
}
