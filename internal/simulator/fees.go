package simulator

import (
	"math"
	"sync"
)

// FeeStrategy maps an order to an exchange fee. Implementations are pure
// functions of their configuration so alternative venues can be swapped in
// without touching the estimation engine.
type FeeStrategy interface {
	// Fee returns |orderSize| * price * rate, with the rate selected by the
	// maker flag. Fees are always a cost, regardless of order direction.
	Fee(orderSize, price float64, maker bool) float64
	MakerRate() float64
	TakerRate() float64
}

// feeTier is one maker/taker rate pair.
type feeTier struct {
	maker float64
	taker float64
}

// okxFeeTiers is the OKX spot fee schedule by VIP tier.
var okxFeeTiers = map[string]feeTier{
	"tier1": {0.0008, 0.001},
	"tier2": {0.0007, 0.0009},
	"tier3": {0.0006, 0.0008},
	"tier4": {0.0005, 0.0007},
	"tier5": {0.0004, 0.0006},
}

// exchangeFeeTiers maps exchange name to its tier schedule.
var exchangeFeeTiers = map[string]map[string]feeTier{
	"OKX": okxFeeTiers,
}

// TieredFees implements FeeStrategy from a static per-exchange tier table.
// An unknown exchange or tier keeps the rates it already has; a missing
// schedule is a configuration mismatch, not an error.
type TieredFees struct {
	mu       sync.RWMutex
	exchange string
	tier     string
	maker    float64
	taker    float64
}

// NewTieredFees creates a TieredFees for the given exchange and tier,
// starting from conservative default rates (0.1% maker / 0.2% taker) that
// survive an unknown tier lookup.
func NewTieredFees(exchange, tier string) *TieredFees {
	f := &TieredFees{
		exchange: exchange,
		tier:     tier,
		maker:    0.001,
		taker:    0.002,
	}
	f.applyTierLocked(tier) // not shared yet, no lock needed
	return f
}

// SetTier switches to another fee tier on the same exchange. Unknown tiers
// leave the current rates in place. The tier name and rates change in one
// critical section so a concurrent Fee call never sees them mismatched.
func (f *TieredFees) SetTier(tier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tier = tier
	f.applyTierLocked(tier)
}

// applyTierLocked updates the rates for tier. Callers must hold mu or own
// the value exclusively.
func (f *TieredFees) applyTierLocked(tier string) {
	schedule, ok := exchangeFeeTiers[f.exchange]
	if !ok {
		return
	}
	rates, ok := schedule[tier]
	if !ok {
		return
	}
	f.maker = rates.maker
	f.taker = rates.taker
}

// Fee implements FeeStrategy.
func (f *TieredFees) Fee(orderSize, price float64, maker bool) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rate := f.taker
	if maker {
		rate = f.maker
	}
	return math.Abs(orderSize) * price * rate
}

// MakerRate returns the current maker fee rate.
func (f *TieredFees) MakerRate() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.maker
}

// TakerRate returns the current taker fee rate.
func (f *TieredFees) TakerRate() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.taker
}

var _ FeeStrategy = (*TieredFees)(nil)
