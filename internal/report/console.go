// Package report renders estimate output for human consumption.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/okquant/costsim/internal/domain"
)

// ConsoleReporter prints each estimate as a fixed-width block, one per book
// update. Writes are serialized so interleaved goroutines cannot shear a
// block.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Report prints one estimate record.
func (r *ConsoleReporter) Report(rec domain.EstimateRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := rec.Metrics
	fmt.Fprintf(r.out, "─── %s %s  %s %.4f @ %.2f ───\n",
		rec.Exchange, rec.Symbol, rec.OrderType, rec.OrderSize, rec.LimitPrice)
	fmt.Fprintf(r.out, "  mid %.4f  spread %.4f  imbalance %+.4f\n",
		m.MidPrice, m.Spread, m.Imbalance)
	fmt.Fprintf(r.out, "  slippage %.6f (q=%.2f)  impact %.6f (q=%.2f)\n",
		m.ExpectedSlippage, m.SlippageConfidence, m.ExpectedImpact, m.ImpactConfidence)
	fmt.Fprintf(r.out, "  fees %.6f  net cost %.6f  maker prob %.3f\n",
		m.ExpectedFees, m.NetCost, m.MakerProbability)
	fmt.Fprintf(r.out, "  latency %s\n", m.InternalLatency)
}
