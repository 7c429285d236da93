package slippage

import "sort"

// quantile computes the q-quantile of values by linear interpolation between
// order statistics (the R-7 rule: position = q*(n-1), blend floor/ceil by
// the fractional part). q <= 0 clamps to the minimum and q >= 1 to the
// maximum. Returns 0 for an empty input. The input slice is not modified.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	idx := int(pos)
	frac := pos - float64(idx)

	if idx+1 >= len(sorted) {
		return sorted[idx]
	}
	return sorted[idx] + frac*(sorted[idx+1]-sorted[idx])
}
