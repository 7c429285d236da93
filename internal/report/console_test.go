package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/okquant/costsim/internal/domain"
)

func TestReportPrintsEstimate(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)

	r.Report(domain.EstimateRecord{
		Exchange:   "OKX",
		Symbol:     "BTC-USDT",
		OrderSize:  100,
		LimitPrice: 95000,
		OrderType:  "market",
		Metrics: domain.TradeMetrics{
			MidPrice:         95000.25,
			Spread:           0.5,
			Imbalance:        0.1764,
			ExpectedFees:     95.0,
			MakerProbability: 0.5,
			InternalLatency:  42 * time.Microsecond,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "OKX BTC-USDT")
	assert.Contains(t, out, "mid 95000.2500")
	assert.Contains(t, out, "spread 0.5000")
	assert.Contains(t, out, "maker prob 0.500")
	assert.Contains(t, out, "42µs")
}
