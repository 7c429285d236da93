package slippage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileEmptyInput(t *testing.T) {
	assert.Equal(t, 0.0, quantile(nil, 0.5))
}

func TestQuantileSingleValue(t *testing.T) {
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.5))
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.95))
}

func TestQuantileLinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	// position = q*(n-1); 0.5*3 = 1.5 -> halfway between 2 and 3.
	assert.InDelta(t, 2.5, quantile(values, 0.5), 1e-12)
	// 0.25*3 = 0.75 -> 1 + 0.75*(2-1).
	assert.InDelta(t, 1.75, quantile(values, 0.25), 1e-12)
	// 0.95*3 = 2.85 -> 3 + 0.85*(4-3).
	assert.InDelta(t, 3.85, quantile(values, 0.95), 1e-12)
}

func TestQuantileClamps(t *testing.T) {
	values := []float64{3, 1, 2}
	assert.Equal(t, 1.0, quantile(values, 0))
	assert.Equal(t, 1.0, quantile(values, -0.5))
	assert.Equal(t, 3.0, quantile(values, 1))
	assert.Equal(t, 3.0, quantile(values, 1.5))
}

func TestQuantileDoesNotModifyInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_ = quantile(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestQuantileMonotoneInQ(t *testing.T) {
	values := []float64{-0.02, 0.01, 0.005, -0.001, 0.03}
	prev := quantile(values, 0)
	for q := 0.1; q <= 1.0; q += 0.1 {
		cur := quantile(values, q)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}
