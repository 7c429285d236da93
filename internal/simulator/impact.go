package simulator

import (
	"math"
	"sync"
)

// ImpactStrategy maps an order to expected market impact over a time
// horizon. Like FeeStrategy it is a pure function of its parameters and can
// be swapped per venue or per model.
type ImpactStrategy interface {
	Impact(orderSize, price, horizon float64) float64
}

// SquareRootImpact is a square-root/linear impact law in the Almgren-Chriss
// family: a temporary component proportional to sqrt(participation) and a
// permanent component linear in participation, both scaled by price.
type SquareRootImpact struct {
	mu          sync.RWMutex
	volatility  float64
	dailyVolume float64
	kTemp       float64
	kPerm       float64
}

// NewSquareRootImpact creates the impact model. Both impact factors default
// to 0.1 when passed as zero.
func NewSquareRootImpact(volatility, dailyVolume, kTemp, kPerm float64) *SquareRootImpact {
	if kTemp == 0 {
		kTemp = 0.1
	}
	if kPerm == 0 {
		kPerm = 0.1
	}
	return &SquareRootImpact{
		volatility:  volatility,
		dailyVolume: dailyVolume,
		kTemp:       kTemp,
		kPerm:       kPerm,
	}
}

// Impact returns temporary + permanent impact for an order of the given
// size. An unset or zero daily volume means participation is undefined; the
// result is then 0 ("impact unavailable") instead of a non-finite value.
// The horizon parameter is reserved for horizon-dependent refinements of
// the law and does not affect the current formula.
func (m *SquareRootImpact) Impact(orderSize, price, horizon float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dailyVolume <= 0 {
		return 0
	}
	participation := math.Abs(orderSize) / m.dailyVolume

	temp := m.kTemp * math.Sqrt(participation) * price
	perm := m.kPerm * participation * price
	return temp + perm
}

// SetParameters replaces the model parameters.
func (m *SquareRootImpact) SetParameters(volatility, dailyVolume, kTemp, kPerm float64) {
	m.mu.Lock()
	m.volatility = volatility
	m.dailyVolume = dailyVolume
	m.kTemp = kTemp
	m.kPerm = kPerm
	m.mu.Unlock()
}

// Trajectory splits totalSize into an equal-slice execution schedule over
// the horizon. A placeholder for a risk-aware optimal schedule.
func (m *SquareRootImpact) Trajectory(totalSize, horizon float64) []float64 {
	const steps = 10
	out := make([]float64, steps)
	slice := totalSize / steps
	for i := range out {
		out[i] = slice
	}
	return out
}

var _ ImpactStrategy = (*SquareRootImpact)(nil)
